package printer

import (
	"fmt"
	"io"

	"github.com/gpupool/gatewayd/internal/api"
	"github.com/gpupool/gatewayd/internal/cmd/output"
)

var _ output.Printer[api.PoolSummary] = (*PoolPrinter)(nil)

// PoolPrinter renders a pool summary followed by each of its servers.
type PoolPrinter struct {
	headerFunc    output.WriteFunc[api.PoolSummary]
	footerFunc    output.WriteFunc[api.PoolSummary]
	ServerPrinter output.Printer[api.Server]
}

func NewPoolPrinter(prn output.Printer[api.Server]) *PoolPrinter {
	if prn == nil {
		prn = NewServerPrinter()
	}
	return &PoolPrinter{
		headerFunc:    DefaultPoolHeader(),
		footerFunc:    nil,
		ServerPrinter: prn,
	}
}

func (p *PoolPrinter) Header(w io.Writer, count int) {
	if p.headerFunc != nil {
		p.headerFunc(w, count)
	}
}

func (p *PoolPrinter) SetHeader(fn output.WriteFunc[api.PoolSummary]) {
	p.headerFunc = fn
}

func (p *PoolPrinter) Footer(w io.Writer, count int) {
	if p.footerFunc != nil {
		p.footerFunc(w, count)
	}
}

func (p *PoolPrinter) SetFooter(fn output.WriteFunc[api.PoolSummary]) {
	p.footerFunc = fn
}

func (p *PoolPrinter) Item(w io.Writer, pool api.PoolSummary) error {
	monitor := "stopped"
	if pool.MonitorRunning {
		monitor = "running"
	}

	_, _ = fmt.Fprintf(
		w,
		"🖥️  %d server%s (%d healthy, %d unhealthy), health checks %s\n",
		pool.TotalServers,
		plural(pool.TotalServers),
		pool.HealthyServers,
		pool.UnhealthyServers,
		monitor,
	)
	_, _ = fmt.Fprintln(w, "")

	switch {
	case len(pool.Servers) == 0 && pool.TotalServers > 0:
		_, _ = fmt.Fprintln(w, "  No backend servers match the filters")
		return nil
	case len(pool.Servers) == 0:
		_, _ = fmt.Fprintln(w, "  No backend servers registered")
		return nil
	}

	p.ServerPrinter.Header(w, len(pool.Servers))
	for _, srv := range pool.Servers {
		if err := p.ServerPrinter.Item(w, srv); err != nil {
			return err
		}
		p.ServerPrinter.Footer(w, len(pool.Servers))
	}

	return nil
}

func DefaultPoolHeader() output.WriteFunc[api.PoolSummary] {
	return func(w io.Writer, _ int) {
		_, _ = fmt.Fprintln(w, "")
		_, _ = fmt.Fprintln(w, "────────────────────────────────────────────")
		_, _ = fmt.Fprintln(w, "")
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
