// FILE: lixenwraith/layerconf/logging.go
package layerconf

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// discardLogger is used by library code when no logger is supplied.
var discardLogger = slog.New(slog.DiscardHandler)

// LevelCritical sits above slog.LevelError.
const LevelCritical = slog.Level(12)

// Logging types accepted in logging.type.
const (
	LoggingDefault = "default"
	LoggingColored = "colored"
	LoggingGoogle  = "google"
)

// LoggingConfig mirrors the logging section of a project configuration.
type LoggingConfig struct {
	Type            string            `yaml:"type"`
	Level           string            `yaml:"level"`
	MessageFormat   string            `yaml:"message_format"`
	TimestampFormat string            `yaml:"timestamp_format"`
	Loggers         map[string]string `yaml:"loggers"`
}

// ParseLevel maps DEBUG, INFO, WARNING, ERROR and CRITICAL onto slog levels.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARNING", "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	case "CRITICAL":
		return LevelCritical, nil
	}
	return 0, fmt.Errorf("unknown logging level %q", name)
}

// LevelName is the inverse of ParseLevel for arbitrary levels.
func LevelName(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARNING"
	case l < LevelCritical:
		return "ERROR"
	}
	return "CRITICAL"
}

// NewLogger builds a logger writing to w from the logging section of s.
// Children returned by Named honor the per-name levels of logging.loggers.
func NewLogger(s *Snapshot, w io.Writer) (*slog.Logger, error) {
	var cfg LoggingConfig
	if err := s.Scan("logging", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read logging configuration: %w", err)
	}

	base, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	levels := make(map[string]slog.Level, len(cfg.Loggers))
	for name, lvl := range cfg.Loggers {
		l, err := ParseLevel(lvl)
		if err != nil {
			return nil, fmt.Errorf("logger %q: %w", name, err)
		}
		levels[name] = l
	}

	var inner slog.Handler
	switch cfg.Type {
	case LoggingDefault, LoggingColored:
		inner = newFormatHandler(w, cfg, cfg.Type == LoggingColored)
	case LoggingGoogle:
		inner = newGoogleHandler(w)
		if labels, err := s.Get("labels"); err == nil {
			if m, ok := labels.(map[string]any); ok && len(m) > 0 {
				inner = inner.WithAttrs([]slog.Attr{slog.Any("logging.googleapis.com/labels", m)})
			}
		}
	default:
		return nil, fmt.Errorf("unknown logging type %q", cfg.Type)
	}

	return slog.New(&levelHandler{inner: inner, base: base, levels: levels}), nil
}

// Named returns a child logger for a component name. With a logger from
// NewLogger the child is filtered by the closest configured level among
// the name and its dotted parents.
func Named(logger *slog.Logger, name string) *slog.Logger {
	if h, ok := logger.Handler().(*levelHandler); ok {
		return slog.New(h.withName(name))
	}
	return logger.With(nameKey, name)
}

const nameKey = "logger"

// levelHandler applies the base level or a per-name level before delegating.
type levelHandler struct {
	inner  slog.Handler
	base   slog.Level
	levels map[string]slog.Level
	name   string
}

func (h *levelHandler) minLevel() slog.Level {
	for name := strings.ToLower(h.name); name != ""; {
		if l, ok := h.levels[name]; ok {
			return l
		}
		i := strings.LastIndex(name, ".")
		if i < 0 {
			break
		}
		name = name[:i]
	}
	return h.base
}

func (h *levelHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.minLevel()
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.inner = h.inner.WithAttrs(attrs)
	return &c
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	c := *h
	c.inner = h.inner.WithGroup(name)
	return &c
}

func (h *levelHandler) withName(name string) *levelHandler {
	c := *h
	c.name = name
	c.inner = h.inner.WithAttrs([]slog.Attr{slog.String(nameKey, name)})
	return &c
}

// newGoogleHandler writes structured JSON lines with severity and message keys.
func newGoogleHandler(w io.Writer) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.Level(-8),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.LevelKey:
				return slog.String("severity", LevelName(a.Value.Any().(slog.Level)))
			case slog.MessageKey:
				a.Key = "message"
			}
			return a
		},
	})
}

var placeholderPattern = regexp.MustCompile(`%\((\w+)\)(-?[0-9]*)s`)

// formatHandler renders records with a %(field)s message format.
// Known fields are asctime, levelname, name and message; attributes
// follow the formatted line as key=value pairs.
type formatHandler struct {
	mu         *sync.Mutex
	w          io.Writer
	format     string
	timeFormat string
	styles     map[string]lipgloss.Style
	name       string
	attrs      []slog.Attr
	group      string
}

func newFormatHandler(w io.Writer, cfg LoggingConfig, colored bool) *formatHandler {
	format := cfg.MessageFormat
	if format == "" {
		format = "%(asctime)s %(levelname)s %(name)s: %(message)s"
	}
	h := &formatHandler{
		mu:         &sync.Mutex{},
		w:          w,
		format:     format,
		timeFormat: cfg.TimestampFormat,
	}
	if colored {
		r := lipgloss.NewRenderer(w)
		h.styles = map[string]lipgloss.Style{
			"DEBUG":    r.NewStyle().Foreground(lipgloss.Color("240")),
			"INFO":     r.NewStyle().Foreground(lipgloss.Color("86")),
			"WARNING":  r.NewStyle().Foreground(lipgloss.Color("214")),
			"ERROR":    r.NewStyle().Foreground(lipgloss.Color("196")),
			"CRITICAL": r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		}
	}
	return h
}

func (h *formatHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *formatHandler) Handle(_ context.Context, r slog.Record) error {
	level := LevelName(r.Level)
	name := h.name
	if name == "" {
		name = "root"
	}

	line := placeholderPattern.ReplaceAllStringFunc(h.format, func(m string) string {
		sub := placeholderPattern.FindStringSubmatch(m)
		var v string
		switch sub[1] {
		case "asctime":
			v = strftime(r.Time, h.timeFormat)
		case "levelname":
			v = level
		case "name":
			v = name
		case "message":
			v = r.Message
		default:
			return m
		}
		if sub[2] != "" {
			v = fmt.Sprintf("%"+sub[2]+"s", v)
		}
		if sub[1] == "levelname" && h.styles != nil {
			v = h.styles[level].Render(v)
		}
		return v
	})

	var b strings.Builder
	b.WriteString(line)
	for _, a := range h.attrs {
		writeAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.group, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func writeAttr(b *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(b, key, ga)
		}
		return
	}
	fmt.Fprintf(b, " %s=%v", key, a.Value.Any())
}

func (h *formatHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		if a.Key == nameKey && h.group == "" {
			c.name = a.Value.String()
			continue
		}
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		c.attrs = append(c.attrs, a)
	}
	return &c
}

func (h *formatHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.group = joinPath(h.group, name)
	return &c
}

var strftimeDirectives = map[byte]string{
	'Y': "2006", 'y': "06", 'm': "01", 'd': "02", 'H': "15", 'I': "03",
	'M': "04", 'S': "05", 'p': "PM", 'b': "Jan", 'B': "January",
	'a': "Mon", 'A': "Monday", 'z': "-0700", 'Z': "MST", 'j': "002",
}

// strftime formats t with a strftime pattern. Each directive is rendered on
// its own and literal text is copied as is; unknown directives stay literal.
func strftime(t time.Time, format string) string {
	if format == "" {
		return t.Format(time.DateTime)
	}
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		if format[i] == '%' && i+1 < len(format) {
			switch c := format[i+1]; c {
			case '%':
				b.WriteByte('%')
				i++
				continue
			case 'f':
				fmt.Fprintf(&b, "%06d", t.Nanosecond()/1000)
				i++
				continue
			default:
				if layout, ok := strftimeDirectives[c]; ok {
					b.WriteString(t.Format(layout))
					i++
					continue
				}
			}
		}
		b.WriteByte(format[i])
	}
	return b.String()
}
