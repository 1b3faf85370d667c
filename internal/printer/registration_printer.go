package printer

import (
	"fmt"
	"io"

	"github.com/gpupool/gatewayd/internal/cmd/output"
	"github.com/gpupool/gatewayd/internal/webhook"
)

var _ output.Printer[webhook.Registration] = (*RegistrationPrinter)(nil)

// RegistrationPrinter renders the gateway's answer to a register or unregister call.
type RegistrationPrinter struct {
	headerFunc output.WriteFunc[webhook.Registration]
	footerFunc output.WriteFunc[webhook.Registration]
}

func NewRegistrationPrinter() *RegistrationPrinter {
	return &RegistrationPrinter{}
}

func (p *RegistrationPrinter) Header(w io.Writer, count int) {
	if p.headerFunc != nil {
		p.headerFunc(w, count)
	}
}

func (p *RegistrationPrinter) SetHeader(fn output.WriteFunc[webhook.Registration]) {
	p.headerFunc = fn
}

func (p *RegistrationPrinter) Footer(w io.Writer, count int) {
	if p.footerFunc != nil {
		p.footerFunc(w, count)
	}
}

func (p *RegistrationPrinter) SetFooter(fn output.WriteFunc[webhook.Registration]) {
	p.footerFunc = fn
}

func (p *RegistrationPrinter) Item(w io.Writer, reg webhook.Registration) error {
	_, _ = fmt.Fprintf(w, "✓ %s\n", reg.Message)
	_, _ = fmt.Fprintf(w, "  🆔 %s\n", reg.ServerID)
	if reg.IP != "" {
		_, _ = fmt.Fprintf(w, "  %s%s:%d\n", padRight("Address:", labelWidth), reg.IP, reg.Port)
	}
	return nil
}
