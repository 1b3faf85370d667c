package store

// recordSchema is the JSON schema a single persisted server record must satisfy to be restored.
const recordSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["server_id", "ip", "port"],
  "properties": {
    "server_id": {"type": "string", "pattern": "^GPU-[0-9]{3}$"},
    "ip": {"type": "string", "minLength": 1},
    "port": {"type": "integer", "minimum": 1, "maximum": 65535},
    "url": {"type": "string"},
    "is_healthy": {"type": "boolean"},
    "fail_count": {"type": "integer", "minimum": 0},
    "last_check_time": {"type": ["string", "null"], "format": "date-time"},
    "last_used_time": {"type": ["string", "null"], "format": "date-time"}
  }
}`
