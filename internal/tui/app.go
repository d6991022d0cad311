// Package tui provides the interactive kiosk terminal UI for linha.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/linhaops/linha/internal/api"
	"github.com/linhaops/linha/internal/session"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#2563EB")
	successColor = lipgloss.Color("#10B981")
	errorColor   = lipgloss.Color("#EF4444")
	warningColor = lipgloss.Color("#F59E0B")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	grantedBannerStyle = lipgloss.NewStyle().
				Bold(true).
				Background(successColor).
				Foreground(fgColor).
				Padding(1, 4)

	deniedBannerStyle = lipgloss.NewStyle().
				Bold(true).
				Background(errorColor).
				Foreground(fgColor).
				Padding(1, 4)

	warnBannerStyle = lipgloss.NewStyle().
			Bold(true).
			Background(warningColor).
			Foreground(fgColor).
			Padding(1, 4)

	labelStyle = lipgloss.NewStyle().Foreground(mutedColor)
	valueStyle = lipgloss.NewStyle().Bold(true)
)

// Messages produced by commands. Every message carries the session epoch it
// was armed for so that timers belonging to a torn-down session are dropped
// instead of acted on.

type authResultMsg struct {
	epoch int
	name  string
	err   error
}

type advanceTickMsg struct{ epoch int }

type resetTickMsg struct{ epoch int }

type catalogsMsg struct {
	epoch int
	err   error
}

type pollTickMsg struct{ epoch int }

type pollDoneMsg struct {
	epoch  int
	result session.PollResult
}

type startResultMsg struct {
	epoch int
	err   error
}

type submitResultMsg struct {
	epoch int
	err   error
}

type bannerKind int

const (
	bannerNone bannerKind = iota
	bannerGranted
	bannerDenied
	bannerWarn
)

// App is the kiosk terminal model. All mutable state lives here or inside
// the session; commands only perform I/O and report back as messages.
type App struct {
	sess           *session.Session
	post           string
	requireConfirm bool

	input  textinput.Model
	width  int
	height int

	busy          bool // a backend call is in flight, controls disabled
	catalogsReady bool
	confirming    bool // quantity entered, waiting for badge re-scan
	pendingQty    int

	banner     string
	bannerKind bannerKind

	message string // inline error line under the input
}

// New creates the kiosk terminal pointed at a backend. post is the post this
// terminal is physically installed at; requireConfirm enables the badge
// re-scan before a submission is honored.
func New(apiAddr, post string, requireConfirm bool) *App {
	ti := textinput.New()
	ti.Placeholder = "passe o crachá"
	ti.Focus()
	ti.CharLimit = 64
	ti.Width = 40

	client := api.NewClient(apiAddr)
	return &App{
		sess:           session.New(client, post),
		post:           post,
		requireConfirm: requireConfirm,
		input:          ti,
	}
}

// Run starts the terminal UI.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit

		case "enter":
			if cmd := a.handleEnter(); cmd != nil {
				return a, cmd
			}
			return a, nil

		case "f":
			// Finish is offered whenever an open record is known, both from
			// an open session and right after re-authentication.
			if !a.busy && a.banner == "" && a.input.Value() == "" && a.sess.HasOpenRecord() {
				st := a.sess.State()
				if st == session.StateSessionOpen || st == session.StateAwaitingOperation {
					if err := a.sess.RequestFinish(); err == nil {
						a.confirming = false
						a.message = ""
						a.setInput("quantidade produzida (0 cancela)")
						return a, nil
					}
				}
			}

		case "i":
			if !a.busy && a.banner == "" && a.input.Value() == "" &&
				a.sess.State() == session.StateAwaitingOperation &&
				!a.sess.HasOpenRecord() {
				if b := a.sess.Bound(); b != nil && b.Complete() {
					a.busy = true
					a.message = ""
					return a, a.startCmd()
				}
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case authResultMsg:
		if msg.epoch != a.sess.Epoch() {
			return a, nil
		}
		a.busy = false
		if msg.err != nil {
			a.showBanner("ACESSO NEGADO", bannerDenied)
			return a, a.resetTick()
		}
		a.showBanner("ACESSO LIBERADO  "+msg.name, bannerGranted)
		return a, a.advanceTick()

	case advanceTickMsg:
		if msg.epoch != a.sess.Epoch() {
			return a, nil
		}
		if err := a.sess.Advance(); err != nil {
			return a, nil
		}
		a.clearBanner()
		a.setInput("código da operação")
		a.busy = true
		return a, tea.Batch(a.catalogsCmd(), a.pollCmd())

	case resetTickMsg:
		if msg.epoch != a.sess.Epoch() {
			return a, nil
		}
		a.resetToGate()
		return a, nil

	case catalogsMsg:
		if msg.epoch != a.sess.Epoch() {
			return a, nil
		}
		a.busy = false
		if msg.err != nil {
			a.showBanner("FALHA AO CARREGAR CATÁLOGOS", bannerDenied)
			return a, a.resetTick()
		}
		a.catalogsReady = true
		return a, nil

	case pollTickMsg:
		if msg.epoch != a.sess.Epoch() {
			return a, nil
		}
		return a, a.pollCmd()

	case pollDoneMsg:
		if msg.epoch != a.sess.Epoch() {
			return a, nil
		}
		if msg.result == session.PollTripped {
			a.showBanner("PROCESSO CANCELADO", bannerWarn)
			return a, a.resetTick()
		}
		// Schedule the next poll only after the current check is complete.
		return a, tea.Tick(session.PollInterval, func(time.Time) tea.Msg {
			return pollTickMsg{epoch: msg.epoch}
		})

	case startResultMsg:
		if msg.epoch != a.sess.Epoch() {
			return a, nil
		}
		a.busy = false
		if msg.err != nil {
			if msg.err == session.ErrAlreadyOpen {
				a.message = "já existe um registro aberto; finalize-o"
			} else {
				a.message = "erro ao iniciar: " + msg.err.Error()
			}
			return a, nil
		}
		a.message = ""
		a.input.SetValue("")
		return a, nil

	case submitResultMsg:
		// A successful submit resets the session and bumps the epoch, so the
		// guard here only drops messages from sessions torn down by other
		// paths.
		a.busy = false
		if msg.err != nil {
			switch msg.err {
			case session.ErrRecordGone:
				a.showBanner("PROCESSO CANCELADO", bannerWarn)
				return a, a.resetTick()
			case session.ErrBadgeMismatch:
				a.message = "crachá diverge do operador da sessão"
				a.setInput("confirme com o crachá")
			case session.ErrEmptyBadge:
				a.message = "passe o crachá para confirmar"
			default:
				a.message = "erro ao registrar: " + msg.err.Error()
			}
			return a, nil
		}
		a.showBanner("REGISTRO ENCERRADO", bannerGranted)
		return a, a.resetTick()
	}

	// Update input
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)

	return a, tea.Batch(cmds...)
}

// handleEnter dispatches the enter key by session state. It returns nil when
// the key should be ignored (banner holding, call in flight).
func (a *App) handleEnter() tea.Cmd {
	if a.busy || a.banner != "" {
		return nil
	}
	value := strings.TrimSpace(a.input.Value())

	switch a.sess.State() {
	case session.StateIdle:
		if value == "" {
			return nil
		}
		a.busy = true
		a.message = ""
		return a.authCmd(value)

	case session.StateAwaitingOperation:
		if !a.catalogsReady || value == "" {
			return nil
		}
		if a.sess.HasOpenRecord() {
			a.message = "registro aberto; pressione f para finalizar"
			return nil
		}
		if _, err := a.sess.Bind(value); err != nil {
			if err == session.ErrOperationNotFound {
				a.message = "operação não encontrada: " + value
			} else {
				a.message = err.Error()
			}
			return nil
		}
		a.message = ""
		a.input.SetValue("")
		return nil

	case session.StateSubmitting:
		if a.confirming {
			if value == "" {
				return nil
			}
			a.busy = true
			a.message = ""
			return a.confirmCmd(value, a.pendingQty)
		}
		qty, err := session.ParseQuantity(value)
		if err != nil {
			a.message = "quantidade inválida; informe um inteiro não negativo"
			return nil
		}
		if a.requireConfirm {
			a.pendingQty = qty
			a.confirming = true
			a.message = ""
			a.setInput("confirme com o crachá")
			return nil
		}
		a.busy = true
		a.message = ""
		return a.submitCmd(qty)
	}
	return nil
}

// resetToGate tears down the session and returns the screen to the badge
// gate. The epoch bump inside Reset invalidates every pending timer.
func (a *App) resetToGate() {
	a.sess.Reset()
	a.catalogsReady = false
	a.confirming = false
	a.pendingQty = 0
	a.message = ""
	a.clearBanner()
	a.setInput("passe o crachá")
}

func (a *App) setInput(placeholder string) {
	a.input.SetValue("")
	a.input.Placeholder = placeholder
	a.input.Focus()
}

func (a *App) showBanner(text string, kind bannerKind) {
	a.banner = text
	a.bannerKind = kind
}

func (a *App) clearBanner() {
	a.banner = ""
	a.bannerKind = bannerNone
}

// --- Commands ---

func (a *App) authCmd(badge string) tea.Cmd {
	epoch := a.sess.Epoch()
	return func() tea.Msg {
		err := a.sess.Authenticate(context.Background(), badge)
		name := ""
		if emp := a.sess.Employee(); emp != nil {
			name = emp.Name
		}
		return authResultMsg{epoch: epoch, name: name, err: err}
	}
}

func (a *App) catalogsCmd() tea.Cmd {
	epoch := a.sess.Epoch()
	return func() tea.Msg {
		err := a.sess.LoadCatalogs(context.Background())
		return catalogsMsg{epoch: epoch, err: err}
	}
}

func (a *App) pollCmd() tea.Cmd {
	epoch := a.sess.Epoch()
	return func() tea.Msg {
		result := a.sess.Poll(context.Background())
		return pollDoneMsg{epoch: epoch, result: result}
	}
}

func (a *App) startCmd() tea.Cmd {
	epoch := a.sess.Epoch()
	return func() tea.Msg {
		err := a.sess.Start(context.Background())
		return startResultMsg{epoch: epoch, err: err}
	}
}

func (a *App) submitCmd(qty int) tea.Cmd {
	epoch := a.sess.Epoch()
	return func() tea.Msg {
		err := a.sess.Submit(context.Background(), qty)
		return submitResultMsg{epoch: epoch, err: err}
	}
}

func (a *App) confirmCmd(badge string, qty int) tea.Cmd {
	epoch := a.sess.Epoch()
	return func() tea.Msg {
		err := a.sess.ConfirmFinish(context.Background(), badge, qty)
		return submitResultMsg{epoch: epoch, err: err}
	}
}

func (a *App) advanceTick() tea.Cmd {
	epoch := a.sess.Epoch()
	return tea.Tick(session.DisplayHold, func(time.Time) tea.Msg {
		return advanceTickMsg{epoch: epoch}
	})
}

func (a *App) resetTick() tea.Cmd {
	epoch := a.sess.Epoch()
	return tea.Tick(session.DisplayHold, func(time.Time) tea.Msg {
		return resetTickMsg{epoch: epoch}
	})
}
