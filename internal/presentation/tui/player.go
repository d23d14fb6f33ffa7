// Package tui implements the terminal player used by the play command.
package tui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/muesli/termenv"

	"github.com/aretw0/lessonweave"
	"github.com/aretw0/lessonweave/pkg/domain"
)

// Player is a line-oriented session driver: it lists modules, enters them,
// opens conversations and submits tasks.
type Player struct {
	engine  *lessonweave.Engine
	session *lessonweave.Session
	in      *bufio.Reader
	out     io.Writer
	render  Renderer
	profile termenv.Profile
}

// NewPlayer creates a player for one profile.
func NewPlayer(eng *lessonweave.Engine, profileID string, in io.Reader, out io.Writer, render Renderer) *Player {
	if render == nil {
		render = Plain
	}
	return &Player{
		engine:  eng,
		session: eng.Session(profileID),
		in:      bufio.NewReader(in),
		out:     out,
		render:  render,
		profile: termenv.ColorProfile(),
	}
}

const help = `Commands:
  modules                    list modules and their state
  enter <module>             enter a module
  leave                      leave the active module
  talk <interactable>        talk to an interactable of the active module
  submit <task> <answer>     submit an answer for a task of the active module
  unlock <module> <password> unlock a module with a password
  reset <module>             forget progress of a module
  help                       show this help
  quit                       exit`

// Run reads commands until quit or end of input.
func (p *Player) Run(ctx context.Context) error {
	if _, err := p.session.Initialize(ctx); err != nil {
		return err
	}
	fmt.Fprintln(p.out, help)
	if err := p.listModules(ctx); err != nil {
		return err
	}

	for {
		line, err := p.prompt(ctx, "> ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		switch cmd {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "help":
			fmt.Fprintln(p.out, help)
		case "modules":
			err = p.listModules(ctx)
		case "enter":
			err = p.enter(ctx, rest)
		case "leave":
			err = p.session.Leave(ctx)
		case "talk":
			err = p.talk(ctx, rest)
		case "submit":
			taskID, answer, _ := strings.Cut(rest, " ")
			err = p.submit(ctx, taskID, answer)
		case "unlock":
			moduleID, password, _ := strings.Cut(rest, " ")
			err = p.unlock(ctx, moduleID, password)
		case "reset":
			err = p.session.Reset(ctx, rest)
		default:
			fmt.Fprintf(p.out, "Unknown command %q. Type help.\n", cmd)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(p.out, p.style("Error: "+err.Error(), "#fb7185"))
		}
	}
}

func (p *Player) listModules(ctx context.Context) error {
	modules, err := p.engine.Modules(ctx)
	if err != nil {
		return err
	}
	progress, err := p.session.Progress(ctx)
	if err != nil {
		return err
	}
	for _, m := range modules {
		state := progress.StateOf(m.ID())
		color := "#9ca3af"
		switch state {
		case domain.StateUnlocked:
			color = "#818cf8"
		case domain.StateCompleted:
			color = "#34d399"
		}
		fmt.Fprintf(p.out, "  %-16s %-10s %s\n", m.ID(), p.style(string(state), color), m.Manifest.Title)
	}
	return nil
}

func (p *Player) enter(ctx context.Context, moduleID string) error {
	if _, err := p.session.Enter(ctx, moduleID); err != nil {
		return err
	}
	m, err := p.engine.Module(ctx, moduleID)
	if err != nil {
		return err
	}
	var md strings.Builder
	fmt.Fprintf(&md, "# %s\n\n", m.Manifest.Title)
	if m.Welcome != "" {
		fmt.Fprintf(&md, "_%s_\n\n", m.Welcome)
	}
	if m.Background != "" {
		fmt.Fprintf(&md, "%s\n\n", m.Background)
	}
	if len(m.Tasks) > 0 {
		md.WriteString("## Tasks\n\n")
		for _, t := range m.Tasks {
			fmt.Fprintf(&md, "- **%s**: %s\n", t.ID, t.Title)
		}
		md.WriteString("\n")
	}
	if len(m.Interactables) > 0 {
		md.WriteString("## Around you\n\n")
		for _, it := range m.Interactables {
			fmt.Fprintf(&md, "- **%s**: %s\n", it.ID, it.Name)
		}
	}
	return p.print(md.String())
}

func (p *Player) talk(ctx context.Context, interactableID string) error {
	progress, err := p.session.Progress(ctx)
	if err != nil {
		return err
	}
	if progress.ActiveModule == "" {
		return fmt.Errorf("enter a module first")
	}
	conv, err := p.session.TalkTo(ctx, progress.ActiveModule, interactableID)
	if err != nil {
		return err
	}
	return p.Converse(ctx, conv)
}

// Converse drives a conversation until it closes.
func (p *Player) Converse(ctx context.Context, conv *lessonweave.Conversation) error {
	for !conv.Closed() {
		if err := p.print(strings.Join(conv.Node().Lines, "\n\n")); err != nil {
			return err
		}
		choices := conv.Choices()
		if len(choices) == 0 {
			if _, err := p.prompt(ctx, p.style("(enter)", "#9ca3af").String()+" "); err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			if err := conv.Advance(ctx); err != nil {
				return err
			}
			continue
		}

		for i, c := range choices {
			fmt.Fprintf(p.out, "  %s %s\n", p.style(strconv.Itoa(i+1)+".", "#a78bfa"), c.Text)
		}
		line, err := p.prompt(ctx, "? ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				conv.Close()
				return nil
			}
			return err
		}
		key := line
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(choices) {
			key = choices[n-1].Key
		}
		if err := conv.Choose(ctx, key); err != nil {
			if domain.CodeOf(err) == domain.CodeDialogueInvalidReference {
				fmt.Fprintln(p.out, p.style("Pick one of the listed choices.", "#fb7185"))
				continue
			}
			return err
		}
	}
	return nil
}

func (p *Player) submit(ctx context.Context, taskID, answer string) error {
	progress, err := p.session.Progress(ctx)
	if err != nil {
		return err
	}
	if progress.ActiveModule == "" {
		return fmt.Errorf("enter a module first")
	}
	result, report, err := p.session.SubmitTask(ctx, progress.ActiveModule, taskID, answer)
	if err != nil {
		return err
	}
	if !result.OK {
		fmt.Fprintln(p.out, p.style(result.Message, "#fbbf24"))
		return nil
	}
	fmt.Fprintln(p.out, p.style(result.Message, "#34d399"))
	if report.ModuleCompleted {
		fmt.Fprintln(p.out, p.style("Module complete!", "#34d399"))
	}
	for _, key := range report.Unlocked {
		fmt.Fprintf(p.out, "Unlocked %s\n", p.style(key, "#818cf8"))
	}
	return nil
}

func (p *Player) unlock(ctx context.Context, moduleID, password string) error {
	ok, err := p.session.Unlock(ctx, moduleID, "", password)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(p.out, p.style("That did not work.", "#fbbf24"))
		return nil
	}
	fmt.Fprintf(p.out, "Unlocked %s\n", p.style(moduleID, "#818cf8"))
	return nil
}

func (p *Player) prompt(ctx context.Context, prefix string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(p.out, prefix)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *Player) print(markdown string) error {
	out, err := p.render(markdown)
	if err != nil {
		return err
	}
	fmt.Fprintln(p.out, strings.TrimRight(out, "\n"))
	return nil
}

func (p *Player) style(s, color string) termenv.Style {
	return termenv.String(s).Foreground(p.profile.Color(color))
}
