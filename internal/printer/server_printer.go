package printer

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gpupool/gatewayd/internal/api"
	"github.com/gpupool/gatewayd/internal/cmd/output"
)

var _ output.Printer[api.Server] = (*ServerPrinter)(nil)

func DefaultServerHeader() output.WriteFunc[api.Server] {
	return nil
}

func DefaultServerFooter() output.WriteFunc[api.Server] {
	return func(w io.Writer, _ int) {
		_, _ = fmt.Fprintln(w, "")
	}
}

// ServerPrinter renders a single registered backend server.
type ServerPrinter struct {
	headerFunc output.WriteFunc[api.Server]
	footerFunc output.WriteFunc[api.Server]
}

func NewServerPrinter() *ServerPrinter {
	return &ServerPrinter{
		headerFunc: DefaultServerHeader(),
		footerFunc: DefaultServerFooter(),
	}
}

func (p *ServerPrinter) Header(w io.Writer, count int) {
	if p.headerFunc != nil {
		p.headerFunc(w, count)
	}
}

func (p *ServerPrinter) SetHeader(fn output.WriteFunc[api.Server]) {
	p.headerFunc = fn
}

func (p *ServerPrinter) Footer(w io.Writer, count int) {
	if p.footerFunc != nil {
		p.footerFunc(w, count)
	}
}

func (p *ServerPrinter) SetFooter(fn output.WriteFunc[api.Server]) {
	p.footerFunc = fn
}

// Item outputs a single server entry.
func (p *ServerPrinter) Item(w io.Writer, srv api.Server) error {
	_, _ = fmt.Fprintf(w, "  🆔 %s %s\n", srv.ID, statusBadge(srv))
	_, _ = fmt.Fprintf(w, "  %s%s:%d\n", padRight("Address:", labelWidth), srv.IP, srv.Port)
	_, _ = fmt.Fprintf(w, "  %s%s\n", padRight("URL:", labelWidth), srv.URL)
	_, _ = fmt.Fprintf(w, "  %s%d\n", padRight("Failed checks:", labelWidth), srv.FailCount)
	_, _ = fmt.Fprintf(w, "  %s%s\n", padRight("Last checked:", labelWidth), formatTime(srv.LastCheckTime))
	_, _ = fmt.Fprintf(w, "  %s%s\n", padRight("Last used:", labelWidth), formatTime(srv.LastUsedTime))

	return nil
}

const labelWidth = 16

func statusBadge(srv api.Server) string {
	switch srv.Status {
	case "healthy":
		return "✓ (healthy)"
	case "unhealthy":
		return "⚠️ (unhealthy)"
	default:
		return "… (not yet checked)"
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.UTC().Format(time.RFC3339)
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
