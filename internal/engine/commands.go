package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"reelcut/internal/clip"
	"reelcut/internal/timeline"
)

// Command is one editor operation in text form, as typed in the shell or
// stored in a replay script. Positional arguments come first; key=value
// options may follow in any order.
type Command struct {
	Op   string            `json:"op"`
	Args []string          `json:"args,omitempty"`
	Opts map[string]string `json:"opts,omitempty"`
}

// String renders the command back into script form.
func (c Command) String() string {
	parts := []string{c.Op}
	for _, a := range c.Args {
		parts = append(parts, quoteArg(a))
	}
	keys := make([]string, 0, len(c.Opts))
	for k := range c.Opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+quoteArg(c.Opts[k]))
	}
	return strings.Join(parts, " ")
}

func quoteArg(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"'") {
		return strconv.Quote(s)
	}
	return s
}

// Result is what a command produced.
type Result struct {
	Message string      `json:"message"`
	Clip    *clip.Clip  `json:"clip,omitempty"`
	Clips   []clip.Clip `json:"clips,omitempty"`
	Value   float64     `json:"value,omitempty"`
}

// ParseCommand splits a script line into a Command. Blank lines and lines
// starting with # yield a zero Command and no error.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Command{}, nil
	}
	tokens, err := tokenize(line)
	if err != nil {
		return Command{}, err
	}
	cmd := Command{Op: strings.ToLower(tokens[0])}
	for _, tok := range tokens[1:] {
		if key, value, ok := splitOption(tok); ok {
			if cmd.Opts == nil {
				cmd.Opts = map[string]string{}
			}
			cmd.Opts[key] = value
			continue
		}
		cmd.Args = append(cmd.Args, tok)
	}
	return cmd, nil
}

// splitOption recognises key=value tokens whose key is a plain word.
func splitOption(tok string) (string, string, bool) {
	key, value, ok := strings.Cut(tok, "=")
	if !ok || key == "" {
		return "", "", false
	}
	for _, r := range key {
		if !unicode.IsLetter(r) && r != '-' && r != '_' {
			return "", "", false
		}
	}
	return strings.ToLower(key), value, true
}

// tokenize splits on whitespace, honouring single and double quotes and
// backslash escapes inside double quotes.
func tokenize(line string) ([]string, error) {
	var (
		tokens  []string
		cur     strings.Builder
		quote   rune
		inToken bool
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case quote == '"' && r == '\\':
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inToken = true
		case unicode.IsSpace(r):
			if inToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inToken {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}

type handler struct {
	usage string
	run   func(ctx context.Context, e *Engine, cmd Command) (Result, error)
}

var handlers map[string]handler

func init() {
	handlers = map[string]handler{
		"add":        {"add <image|video|text|audio> <track> <start> <duration> [src=] [media=] [name=] [text=]", runAdd},
		"add-media":  {"add-media <media-id> [track] [start]", runAddMedia},
		"add-text":   {"add-text [preset] [text]", runAddText},
		"move":       {"move <clip-id> <start>", runMove},
		"resize":     {"resize <clip-id> <left|right> <delta>", runResize},
		"duration":   {"duration <clip-id> <seconds>", runDuration},
		"split":      {"split <clip-id> [at]", runSplit},
		"delete":     {"delete <clip-id>", runDelete},
		"rename":     {"rename <clip-id> <name>", runRename},
		"effects":    {"effects <clip-id> [brightness=] [contrast=] [saturation=] [blur=]", runEffects},
		"text":       {"text <clip-id> [text=] [size=] [color=] [font=] [y=]", runText},
		"transition": {"transition <clip-id> <none|fade|dissolve|slide|zoom|wipe>", runTransition},
		"animation":  {"animation <clip-id> <none|zoom-in|zoom-out|pan-left|pan-right|ken-burns>", runAnimation},
		"undo":       {"undo", runUndo},
		"redo":       {"redo", runRedo},
		"seek":       {"seek <seconds>", runSeek},
		"play":       {"play", runPlay},
		"pause":      {"pause", runPause},
		"stop":       {"stop", runStop},
		"toggle":     {"toggle", runToggle},
		"zoom":       {"zoom <in|out|fit|factor>", runZoom},
		"volume":     {"volume <0..1>", runVolume},
		"media-rm":   {"media-rm <media-id>", runMediaRemove},
		"name":       {"name <project name>", runName},
	}
}

// Ops lists the command names with their usage, sorted.
func Ops() []string {
	out := make([]string, 0, len(handlers))
	for _, h := range handlers {
		out = append(out, h.usage)
	}
	sort.Strings(out)
	return out
}

// Exec runs a command against the engine.
func (e *Engine) Exec(ctx context.Context, cmd Command) (Result, error) {
	h, ok := handlers[cmd.Op]
	if !ok {
		return Result{}, fmt.Errorf("unknown command %q", cmd.Op)
	}
	res, err := h.run(ctx, e, cmd)
	if err != nil {
		var usage *usageError
		if errors.As(err, &usage) {
			return Result{}, fmt.Errorf("%s (usage: %s)", usage.msg, h.usage)
		}
		return Result{}, err
	}
	return res, nil
}

// ExecLine parses and runs one script line.
func (e *Engine) ExecLine(ctx context.Context, line string) (Result, error) {
	cmd, err := ParseCommand(line)
	if err != nil {
		return Result{}, err
	}
	if cmd.Op == "" {
		return Result{}, nil
	}
	return e.Exec(ctx, cmd)
}

type usageError struct{ msg string }

func (u *usageError) Error() string { return u.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func (c Command) arg(i int) (string, bool) {
	if i < len(c.Args) {
		return c.Args[i], true
	}
	return "", false
}

func (c Command) need(n int) error {
	if len(c.Args) < n {
		return usagef("%s needs %d argument(s)", c.Op, n)
	}
	return nil
}

func (c Command) floatArg(i int, name string) (float64, error) {
	v, ok := c.arg(i)
	if !ok {
		return 0, usagef("missing %s", name)
	}
	return parseFloat(name, v)
}

func (c Command) floatOpt(key string) (float64, bool, error) {
	v, ok := c.Opts[key]
	if !ok {
		return 0, false, nil
	}
	f, err := parseFloat(key, v)
	return f, true, err
}

func parseFloat(name, v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, usagef("%s must be a number, got %q", name, v)
	}
	return f, nil
}

func clipResult(msg string, c clip.Clip) Result {
	return Result{Message: msg, Clip: &c}
}

func runAdd(_ context.Context, e *Engine, cmd Command) (Result, error) {
	if err := cmd.need(4); err != nil {
		return Result{}, err
	}
	kind, err := clip.ParseKind(cmd.Args[0])
	if err != nil {
		return Result{}, err
	}
	track, err := clip.ParseTrack(cmd.Args[1])
	if err != nil {
		return Result{}, err
	}
	start, err := cmd.floatArg(2, "start")
	if err != nil {
		return Result{}, err
	}
	duration, err := cmd.floatArg(3, "duration")
	if err != nil {
		return Result{}, err
	}
	params := clip.Params{
		Name:      cmd.Opts["name"],
		SourceURI: cmd.Opts["src"],
		MediaID:   cmd.Opts["media"],
	}
	if kind == clip.KindText {
		style := clip.TextStyle{Text: cmd.Opts["text"]}
		params.Text = &style
	}
	c, err := clip.New(kind, track, start, duration, params)
	if err != nil {
		return Result{}, err
	}
	added, err := e.AddClip(c)
	if err != nil {
		return Result{}, err
	}
	return clipResult("added "+added.ID, added), nil
}

func runAddMedia(_ context.Context, e *Engine, cmd Command) (Result, error) {
	if err := cmd.need(1); err != nil {
		return Result{}, err
	}
	var track clip.Track
	if v, ok := cmd.arg(1); ok {
		t, err := clip.ParseTrack(v)
		if err != nil {
			return Result{}, err
		}
		track = t
	}
	start := e.CurrentTime()
	if _, ok := cmd.arg(2); ok {
		v, err := cmd.floatArg(2, "start")
		if err != nil {
			return Result{}, err
		}
		start = v
	}
	added, err := e.AddMedia(cmd.Args[0], track, start)
	if err != nil {
		return Result{}, err
	}
	return clipResult("added "+added.ID, added), nil
}

func runAddText(_ context.Context, e *Engine, cmd Command) (Result, error) {
	preset, _ := cmd.arg(0)
	text, _ := cmd.arg(1)
	added, err := e.AddText(preset, text)
	if err != nil {
		return Result{}, err
	}
	return clipResult("added "+added.ID, added), nil
}

func runMove(_ context.Context, e *Engine, cmd Command) (Result, error) {
	if err := cmd.need(2); err != nil {
		return Result{}, err
	}
	start, err := cmd.floatArg(1, "start")
	if err != nil {
		return Result{}, err
	}
	c, err := e.Move(cmd.Args[0], start)
	if err != nil {
		return Result{}, err
	}
	return clipResult(fmt.Sprintf("moved %s to %.2fs", c.ID, c.Start), c), nil
}

func runResize(_ context.Context, e *Engine, cmd Command) (Result, error) {
	if err := cmd.need(3); err != nil {
		return Result{}, err
	}
	edge, err := timeline.ParseEdge(cmd.Args[1])
	if err != nil {
		return Result{}, err
	}
	delta, err := cmd.floatArg(2, "delta")
	if err != nil {
		return Result{}, err
	}
	c, err := e.ResizeBy(cmd.Args[0], edge, delta)
	if err != nil {
		return Result{}, err
	}
	return clipResult(fmt.Sprintf("resized %s to %.2fs-%.2fs", c.ID, c.Start, c.End()), c), nil
}

func runDuration(_ context.Context, e *Engine, cmd Command) (Result, error) {
	if err := cmd.need(2); err != nil {
		return Result{}, err
	}
	d, err := cmd.floatArg(1, "seconds")
	if err != nil {
		return Result{}, err
	}
	c, err := e.SetDuration(cmd.Args[0], d)
	if err != nil {
		return Result{}, err
	}
	return clipResult(fmt.Sprintf("%s lasts %.2fs", c.ID, c.Duration), c), nil
}

func runSplit(_ context.Context, e *Engine, cmd Command) (Result, error) {
	if err := cmd.need(1); err != nil {
		return Result{}, err
	}
	at := e.CurrentTime()
	if _, ok := cmd.arg(1); ok {
		v, err := cmd.floatArg(1, "at")
		if err != nil {
			return Result{}, err
		}
		at = v
	}
	head, tail, err := e.Split(cmd.Args[0], at)
	if err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("split %s at %.2fs into %s", head.ID, at, tail.ID), Clips: []clip.Clip{head, tail}}, nil
}

func runDelete(_ context.Context, e *Engine, cmd Command) (Result, error) {
	if err := cmd.need(1); err != nil {
		return Result{}, err
	}
	c, err := e.Delete(cmd.Args[0])
	if err != nil {
		return Result{}, err
	}
	return clipResult("deleted "+c.ID, c), nil
}

func runRename(_ context.Context, e *Engine, cmd Command) (Result, error) {
	if err := cmd.need(2); err != nil {
		return Result{}, err
	}
	c, err := e.Rename(cmd.Args[0], strings.Join(cmd.Args[1:], " "))
	if err != nil {
		return Result{}, err
	}
	return clipResult("renamed "+c.ID, c), nil
}

func runEffects(_ context.Context, e *Engine, cmd Command) (Result, error) {
	if err := cmd.need(1); err != nil {
		return Result{}, err
	}
	current, err := e.Clip(cmd.Args[0])
	if err != nil {
		return Result{}, err
	}
	fx := current.Effects
	for key, dst := range map[string]*float64{
		"brightness": &fx.Brightness,
		"contrast":   &fx.Contrast,
		"saturation": &fx.Saturation,
		"blur":       &fx.Blur,
	} {
		v, ok, err := cmd.floatOpt(key)
		if err != nil {
			return Result{}, err
		}
		if ok {
			*dst = v
		}
	}
	if reset, _ := cmd.arg(1); reset == "reset" {
		fx = clip.Effects{}
	}
	c, err := e.SetEffects(current.ID, fx)
	if err != nil {
		return Result{}, err
	}
	return clipResult(fmt.Sprintf("effects of %s updated", c.ID), c), nil
}

func runText(_ context.Context, e *Engine, cmd Command) (Result, error) {
	if err := cmd.need(1); err != nil {
		return Result{}, err
	}
	size, hasSize, err := cmd.floatOpt("size")
	if err != nil {
		return Result{}, err
	}
	posY, hasY, err := cmd.floatOpt("y")
	if err != nil {
		return Result{}, err
	}
	if color, ok := cmd.Opts["color"]; ok {
		if _, err := clip.ParseColor(color); err != nil {
			return Result{}, err
		}
	}
	c, err := e.SetText(cmd.Args[0], func(s *clip.TextStyle) {
		if v, ok := cmd.Opts["text"]; ok {
			s.Text = v
		}
		if v, ok := cmd.Opts["color"]; ok {
			s.Color = v
		}
		if v, ok := cmd.Opts["font"]; ok {
			s.FontFamily = v
		}
		if hasSize {
			s.FontSize = size
		}
		if hasY {
			s.PositionY = clip.YPercent(posY)
		}
	})
	if err != nil {
		return Result{}, err
	}
	return clipResult(fmt.Sprintf("text of %s updated", c.ID), c), nil
}

func runTransition(_ context.Context, e *Engine, cmd Command) (Result, error) {
	if err := cmd.need(2); err != nil {
		return Result{}, err
	}
	tr, err := clip.ParseTransition(cmd.Args[1])
	if err != nil {
		return Result{}, err
	}
	c, err := e.SetTransition(cmd.Args[0], tr)
	if err != nil {
		return Result{}, err
	}
	return clipResult(fmt.Sprintf("transition of %s set", c.ID), c), nil
}

func runAnimation(_ context.Context, e *Engine, cmd Command) (Result, error) {
	if err := cmd.need(2); err != nil {
		return Result{}, err
	}
	an, err := clip.ParseAnimation(cmd.Args[1])
	if err != nil {
		return Result{}, err
	}
	c, err := e.SetAnimation(cmd.Args[0], an)
	if err != nil {
		return Result{}, err
	}
	return clipResult(fmt.Sprintf("animation of %s set", c.ID), c), nil
}

func runUndo(_ context.Context, e *Engine, _ Command) (Result, error) {
	if err := e.Undo(); err != nil {
		return Result{}, err
	}
	return Result{Message: "undone"}, nil
}

func runRedo(_ context.Context, e *Engine, _ Command) (Result, error) {
	if err := e.Redo(); err != nil {
		return Result{}, err
	}
	return Result{Message: "redone"}, nil
}

func runSeek(_ context.Context, e *Engine, cmd Command) (Result, error) {
	t, err := cmd.floatArg(0, "seconds")
	if err != nil {
		return Result{}, err
	}
	t = e.Seek(t)
	return Result{Message: "at " + timeline.FormatTime(t), Value: t}, nil
}

func runPlay(_ context.Context, e *Engine, _ Command) (Result, error) {
	if err := e.Play(); err != nil {
		return Result{}, err
	}
	return Result{Message: "playing"}, nil
}

func runPause(_ context.Context, e *Engine, _ Command) (Result, error) {
	e.Pause()
	return Result{Message: "paused", Value: e.CurrentTime()}, nil
}

func runStop(_ context.Context, e *Engine, _ Command) (Result, error) {
	e.Stop()
	return Result{Message: "stopped"}, nil
}

func runToggle(_ context.Context, e *Engine, _ Command) (Result, error) {
	state, err := e.TogglePlay()
	if err != nil {
		return Result{}, err
	}
	return Result{Message: state.String()}, nil
}

func runZoom(_ context.Context, e *Engine, cmd Command) (Result, error) {
	if err := cmd.need(1); err != nil {
		return Result{}, err
	}
	var z float64
	switch cmd.Args[0] {
	case "in":
		z = e.ZoomIn()
	case "out":
		z = e.ZoomOut()
	case "fit":
		z = e.FitZoom()
	default:
		v, err := cmd.floatArg(0, "factor")
		if err != nil {
			return Result{}, err
		}
		z = e.SetZoom(v)
	}
	return Result{Message: fmt.Sprintf("zoom %.2fx", z), Value: z}, nil
}

func runVolume(_ context.Context, e *Engine, cmd Command) (Result, error) {
	v, err := cmd.floatArg(0, "volume")
	if err != nil {
		return Result{}, err
	}
	v = e.SetVolume(v)
	return Result{Message: fmt.Sprintf("volume %.0f%%", v*100), Value: v}, nil
}

func runMediaRemove(_ context.Context, e *Engine, cmd Command) (Result, error) {
	if err := cmd.need(1); err != nil {
		return Result{}, err
	}
	a, err := e.RemoveMedia(cmd.Args[0])
	if err != nil {
		return Result{}, err
	}
	return Result{Message: "removed media " + a.Name}, nil
}

func runName(_ context.Context, e *Engine, cmd Command) (Result, error) {
	if err := cmd.need(1); err != nil {
		return Result{}, err
	}
	e.SetName(strings.Join(cmd.Args, " "))
	return Result{Message: "project renamed to " + e.Name()}, nil
}
