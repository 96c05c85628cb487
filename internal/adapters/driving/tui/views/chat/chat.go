// Package chat provides the conversation view for the TUI.
package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/ragkit/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/ragkit/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/ragkit/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/ragkit/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ragkit/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragkit/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driving"
)

// chrome is the number of rows taken by header, input box and status bar.
const chrome = 7

type entryKind int

const (
	entryUser entryKind = iota
	entryAssistant
	entryError
)

type entry struct {
	kind    entryKind
	text    string
	sources []domain.ScoredChunk
}

// View is the chat transcript with a question input and status bar.
type View struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	input      *input.ChatInput
	sources    *list.Sources
	statusbar  *status.Bar
	transcript viewport.Model

	conversation driving.ConversationService
	ctx          context.Context

	entries     []entry
	header      string
	thinking    bool
	showSources bool
	err         error

	width  int
	height int
	ready  bool
}

// NewView creates a new chat view.
func NewView(s *styles.Styles, km *keymap.KeyMap, conversation driving.ConversationService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	v := &View{
		styles:       s,
		keymap:       km,
		input:        input.NewChatInput(s),
		sources:      list.NewSources(s),
		statusbar:    status.NewBar(s, km),
		transcript:   viewport.New(80, 24-chrome),
		conversation: conversation,
		ctx:          context.Background(),
		showSources:  true,
		width:        80,
		height:       24,
	}
	v.refresh()
	return v
}

// WithContext sets the context used for asks.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetHeader sets the line shown under the title.
func (v *View) SetHeader(header string) {
	v.header = header
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerReceived:
		v.handleAnswer(msg)
		return v, nil

	case messages.ConversationCleared:
		v.entries = nil
		v.err = nil
		v.statusbar.Clear()
		v.statusbar.SetMessage("Conversation cleared")
		v.refresh()
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keymap.Quit):
		return v, func() tea.Msg { return messages.Quit{} }

	case key.Matches(msg, v.keymap.Clear):
		if v.thinking {
			return v, nil
		}
		return v, v.clear()

	case key.Matches(msg, v.keymap.Sources):
		v.showSources = !v.showSources
		v.refresh()
		return v, nil

	case key.Matches(msg, v.keymap.ScrollUp):
		v.transcript.HalfViewUp()
		return v, nil

	case key.Matches(msg, v.keymap.ScrollDown):
		v.transcript.HalfViewDown()
		return v, nil

	case key.Matches(msg, v.keymap.Send):
		question := v.input.Question()
		if question == "" || v.thinking {
			return v, nil
		}
		v.input.Reset()
		v.entries = append(v.entries, entry{kind: entryUser, text: question})
		v.thinking = true
		v.err = nil
		v.statusbar.SetMessage("")
		v.statusbar.SetState(status.StateThinking)
		v.refresh()
		return v, v.ask(question)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// ask answers question off the update loop.
func (v *View) ask(question string) tea.Cmd {
	ctx := v.ctx
	conversation := v.conversation
	return func() tea.Msg {
		answer, err := conversation.Ask(ctx, question)
		return messages.AnswerReceived{Question: question, Answer: answer, Err: err}
	}
}

func (v *View) clear() tea.Cmd {
	conversation := v.conversation
	return func() tea.Msg {
		conversation.Clear()
		return messages.ConversationCleared{}
	}
}

func (v *View) handleAnswer(msg messages.AnswerReceived) {
	v.thinking = false

	if msg.Err != nil {
		v.err = msg.Err
		v.entries = append(v.entries, entry{kind: entryError, text: msg.Err.Error()})
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		v.refresh()
		return
	}

	v.entries = append(v.entries, entry{
		kind:    entryAssistant,
		text:    msg.Answer.Text,
		sources: msg.Answer.Sources,
	})
	v.statusbar.SetState(status.StateReady)
	v.statusbar.SetTurns(len(v.conversation.History()))
	v.refresh()
}

// refresh re-renders the transcript and scrolls to the newest entry.
func (v *View) refresh() {
	v.transcript.SetContent(v.renderTranscript())
	v.transcript.GotoBottom()
}

func (v *View) renderTranscript() string {
	if len(v.entries) == 0 && !v.thinking {
		return v.styles.Muted.Render("Ask a question to start. Follow-up questions keep the conversation context.")
	}

	wrap := lipgloss.NewStyle().Width(v.width - 2)
	blocks := make([]string, 0, len(v.entries)+1)
	for _, e := range v.entries {
		switch e.kind {
		case entryUser:
			blocks = append(blocks, v.styles.UserLabel.Render("You: ")+wrap.Render(v.styles.Normal.Render(e.text)))
		case entryAssistant:
			block := v.styles.AssistantLabel.Render("Assistant: ") + wrap.Render(v.styles.Normal.Render(e.text))
			if v.showSources {
				block += "\n" + v.sources.Render(e.sources)
			}
			blocks = append(blocks, block)
		case entryError:
			blocks = append(blocks, v.styles.Error.Render("Error: "+e.text))
		}
	}
	if v.thinking {
		blocks = append(blocks, v.styles.Muted.Render("Assistant is thinking..."))
	}
	return strings.Join(blocks, "\n\n")
}

// View renders the chat.
func (v *View) View() string {
	title := v.styles.Title.Render("ragkit chat")
	if v.header != "" {
		title += "  " + v.styles.Muted.Render(v.header)
	}

	return strings.Join([]string{
		title,
		"",
		v.transcript.View(),
		v.input.View(),
		v.statusbar.View(),
	}, "\n")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	body := height - chrome
	if body < 3 {
		body = 3
	}
	v.transcript.Width = width
	v.transcript.Height = body
	v.input.SetWidth(width)
	v.sources.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.refresh()
}

// Width returns the view width.
func (v *View) Width() int {
	return v.width
}

// Height returns the view height.
func (v *View) Height() int {
	return v.height
}

// Ready returns whether dimensions have been received.
func (v *View) Ready() bool {
	return v.ready
}

// Thinking reports whether an answer is pending.
func (v *View) Thinking() bool {
	return v.thinking
}

// ShowSources reports whether sources are rendered under answers.
func (v *View) ShowSources() bool {
	return v.showSources
}

// Transcript returns the rendered transcript.
func (v *View) Transcript() string {
	return v.renderTranscript()
}

// Entries returns the number of transcript entries.
func (v *View) Entries() int {
	return len(v.entries)
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// Input returns the question input.
func (v *View) Input() *input.ChatInput {
	return v.input
}

// StatusBar returns the status bar.
func (v *View) StatusBar() *status.Bar {
	return v.statusbar
}
