package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/linhaops/linha/internal/session"
)

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	header := titleStyle.Render("LINHA · Terminal de Produção")
	header += "  " + labelStyle.Render("posto "+a.post)
	b.WriteString(header + "\n")
	if a.width > 0 {
		b.WriteString(strings.Repeat("─", a.width) + "\n")
	} else {
		b.WriteString(strings.Repeat("─", 60) + "\n")
	}

	if a.banner != "" {
		b.WriteString("\n\n")
		b.WriteString(a.renderBanner())
		b.WriteString("\n")
		return b.String()
	}

	switch a.sess.State() {
	case session.StateIdle:
		b.WriteString(a.renderGate())
	case session.StateAwaitingOperation:
		b.WriteString(a.renderBinder())
	case session.StateSessionOpen:
		b.WriteString(a.renderSessionOpen())
	case session.StateSubmitting:
		b.WriteString(a.renderSubmit())
	default:
		// Granted, Denied and Cancelled always hold a banner; reaching here
		// means the reset tick is about to fire.
		b.WriteString("\n")
	}

	if a.message != "" {
		b.WriteString("\n" + lipgloss.NewStyle().Foreground(errorColor).Render(a.message) + "\n")
	}

	return b.String()
}

func (a *App) renderBanner() string {
	style := warnBannerStyle
	switch a.bannerKind {
	case bannerGranted:
		style = grantedBannerStyle
	case bannerDenied:
		style = deniedBannerStyle
	}
	banner := style.Render(a.banner)
	if a.width > 0 {
		return lipgloss.PlaceHorizontal(a.width, lipgloss.Center, banner)
	}
	return banner
}

func (a *App) renderGate() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(valueStyle.Render("  IDENTIFIQUE-SE") + "\n\n")
	b.WriteString(inputBoxStyle.Render(a.input.View()) + "\n\n")
	b.WriteString(helpStyle.Render("  passe o crachá no leitor e pressione enter") + "\n")
	return b.String()
}

func (a *App) renderBinder() string {
	var b strings.Builder
	b.WriteString("\n")

	name := ""
	if emp := a.sess.Employee(); emp != nil {
		name = emp.Name
	}
	b.WriteString(fmt.Sprintf("  %s %s  %s %s\n\n",
		labelStyle.Render("operador:"), valueStyle.Render(name),
		labelStyle.Render("matrícula:"), valueStyle.Render(a.sess.Matricula())))

	if !a.catalogsReady {
		b.WriteString(helpStyle.Render("  carregando catálogos...") + "\n")
		return b.String()
	}

	if a.sess.HasOpenRecord() {
		b.WriteString(a.renderRecordPanel())
		b.WriteString("\n" + helpStyle.Render("  registro em aberto · pressione f para finalizar") + "\n")
		return b.String()
	}

	if bound := a.sess.Bound(); bound != nil {
		b.WriteString(a.renderBoundPanel(bound))
		b.WriteString("\n")
	}

	b.WriteString(inputBoxStyle.Render(a.input.View()) + "\n\n")
	if bound := a.sess.Bound(); bound != nil && bound.Complete() {
		b.WriteString(helpStyle.Render("  enter vincula outra operação · i inicia a produção") + "\n")
	} else {
		b.WriteString(helpStyle.Render("  digite o código da operação e pressione enter") + "\n")
	}
	return b.String()
}

func (a *App) renderBoundPanel(bound *session.BoundOperation) string {
	var p strings.Builder
	p.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("operação:"), valueStyle.Render(bound.Code)))
	p.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("produto: "), bound.Product))
	p.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("modelo:  "), bound.ModelLabel))
	p.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("peça:    "), bound.Part))
	p.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("código:  "), bound.ProductionCode))
	p.WriteString(fmt.Sprintf("%s %s", labelStyle.Render("posto:   "), bound.Post))
	return panelStyle.Render(p.String()) + "\n"
}

func (a *App) renderRecordPanel() string {
	rec := a.sess.Snapshot()
	if rec == nil {
		return ""
	}
	var p strings.Builder
	p.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("registro:"), valueStyle.Render(rec.ID)))
	p.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("operação:"), rec.Operation))
	p.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("modelo:  "), rec.ModelCode))
	p.WriteString(fmt.Sprintf("%s %s · %s\n", labelStyle.Render("posto:   "), rec.Post, rec.Matricula))
	p.WriteString(fmt.Sprintf("%s %s", labelStyle.Render("início:  "), rec.OpenedAt.Local().Format("15:04:05")))
	return panelStyle.Render(p.String()) + "\n"
}

func (a *App) renderSessionOpen() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(successColor).Bold(true).Render("  ● PRODUÇÃO EM ANDAMENTO") + "\n\n")
	b.WriteString(a.renderRecordPanel())
	b.WriteString("\n" + helpStyle.Render("  pressione f para finalizar") + "\n")
	return b.String()
}

func (a *App) renderSubmit() string {
	var b strings.Builder
	b.WriteString("\n")
	if a.confirming {
		b.WriteString(valueStyle.Render("  CONFIRMAÇÃO") + "\n\n")
		b.WriteString(fmt.Sprintf("  %s %d\n\n", labelStyle.Render("quantidade informada:"), a.pendingQty))
		b.WriteString(inputBoxStyle.Render(a.input.View()) + "\n\n")
		b.WriteString(helpStyle.Render("  o mesmo operador deve passar o crachá para confirmar") + "\n")
		return b.String()
	}
	b.WriteString(valueStyle.Render("  ENCERRAMENTO") + "\n\n")
	b.WriteString(a.renderRecordPanel())
	b.WriteString("\n")
	b.WriteString(inputBoxStyle.Render(a.input.View()) + "\n\n")
	b.WriteString(helpStyle.Render("  informe a quantidade produzida · zero cancela o registro") + "\n")
	return b.String()
}
