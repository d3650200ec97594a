package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/zpam/mailtype/internal/logger"
	"github.com/zpam/mailtype/pkg/config"
	"github.com/zpam/mailtype/pkg/email"
)

// Message is one sent message found in the corpus.
type Message struct {
	Path  string // file the message came from
	Email *email.Email
	seq   int
}

// Stats counts what a load found.
type Stats struct {
	Files    int `json:"files"`
	Messages int `json:"messages"` // parsed messages
	Skipped  int `json:"skipped"`  // unreadable files or messages
	Filtered int `json:"filtered"` // not sent by a configured sender
	Dropped  int `json:"dropped"`  // rejected by the Lua hook
	Capped   int `json:"capped"`   // older than the newest max_messages
	Used     int `json:"used"`
	Tokens   int `json:"tokens"`
}

// Result is the token stream of a corpus, oldest message first.
type Result struct {
	Tokens []string
	Stats  Stats
}

// Loader reads sent mail from the configured directories.
type Loader struct {
	config config.CorpusConfig
	parser *email.Parser
	hook   *LuaHook
	log    *log.Logger
}

// NewLoader creates a loader. If cfg.LuaScript is set the script is loaded
// now so a broken script fails before any file is read.
func NewLoader(cfg config.CorpusConfig) (*Loader, error) {
	l := &Loader{
		config: cfg,
		parser: email.NewParser(),
		log:    logger.New("corpus"),
	}
	if cfg.LuaScript != "" {
		hook, err := NewLuaHook(cfg.LuaScript)
		if err != nil {
			return nil, err
		}
		l.hook = hook
	}
	return l, nil
}

// Close releases the Lua hook.
func (l *Loader) Close() {
	if l.hook != nil {
		l.hook.Close()
	}
}

// Load walks every directory, keeps the newest MaxMessages sent messages and
// returns their cleaned tokens concatenated in chronological order.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	messages, stats, err := l.Messages(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{Stats: stats}
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text := msg.Email.Body()
		if l.hook != nil {
			cleaned, keep, err := l.hook.Apply(ctx, msg.Email, text)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", msg.Path, err)
			}
			if !keep {
				res.Stats.Dropped++
				continue
			}
			text = cleaned
		}

		tokens := Tokenize(CleanMessage(text))
		res.Tokens = append(res.Tokens, tokens...)
		res.Stats.Used++
	}
	res.Stats.Tokens = len(res.Tokens)

	l.log.Debug("corpus loaded",
		"files", res.Stats.Files,
		"messages", res.Stats.Messages,
		"used", res.Stats.Used,
		"tokens", res.Stats.Tokens)
	return res, nil
}

// Messages returns the selected messages in chronological order: dated
// messages oldest first, then undated ones in the order they were found.
func (l *Loader) Messages(ctx context.Context) ([]*Message, Stats, error) {
	var stats Stats
	var all []*Message

	for _, dir := range l.config.Dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() || !l.matchesExtension(path) {
				return nil
			}

			stats.Files++
			found, skipped := l.readFile(path)
			stats.Skipped += skipped
			for _, msg := range found {
				stats.Messages++
				if !l.isSent(path, msg) {
					stats.Filtered++
					continue
				}
				all = append(all, &Message{Path: path, Email: msg, seq: len(all)})
			}
			return nil
		})
		if err != nil {
			return nil, stats, fmt.Errorf("failed to walk %s: %w", dir, err)
		}
	}

	// Newest first, undated last.
	sort.SliceStable(all, func(i, j int) bool {
		di, dj := all[i].Email.Date, all[j].Email.Date
		switch {
		case di.IsZero() || dj.IsZero():
			return !di.IsZero() && dj.IsZero()
		default:
			return di.After(dj)
		}
	})
	if limit := l.config.MaxMessages; limit > 0 && len(all) > limit {
		stats.Capped = len(all) - limit
		all = all[:limit]
	}

	sort.SliceStable(all, func(i, j int) bool {
		di, dj := all[i].Email.Date, all[j].Email.Date
		switch {
		case di.IsZero() && dj.IsZero():
			return all[i].seq < all[j].seq
		case di.IsZero() || dj.IsZero():
			return !di.IsZero()
		default:
			return di.Before(dj)
		}
	})

	return all, stats, nil
}

// readFile parses one corpus file into messages. Unreadable messages are
// logged and counted, never fatal.
func (l *Loader) readFile(path string) ([]*email.Email, int) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			l.log.Warn("failed to read file", "path", path, "err", err)
			return nil, 1
		}
		return []*email.Email{{TextBody: string(data)}}, 0

	case ".mbox":
		f, err := os.Open(path)
		if err != nil {
			l.log.Warn("failed to open mbox", "path", path, "err", err)
			return nil, 1
		}
		defer f.Close()

		raw, err := email.SplitMbox(f)
		if err != nil {
			l.log.Warn("failed to split mbox", "path", path, "err", err)
			return nil, 1
		}
		var msgs []*email.Email
		skipped := 0
		for i, data := range raw {
			msg, err := l.parser.ParseBytes(data)
			if err != nil {
				l.log.Warn("failed to parse mbox message", "path", path, "index", i, "err", err)
				skipped++
				continue
			}
			msgs = append(msgs, msg)
		}
		return msgs, skipped

	default:
		msg, err := l.parser.ParseFromFile(path)
		if err != nil {
			l.log.Warn("failed to parse message", "path", path, "err", err)
			return nil, 1
		}
		return []*email.Email{msg}, 0
	}
}

// isSent applies the sender filter. Plain text files carry no headers and
// are always treated as the user's own writing.
func (l *Loader) isSent(path string, msg *email.Email) bool {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		return true
	}
	return config.IsSender(l.config.Senders, msg.From)
}

func (l *Loader) matchesExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if strings.HasPrefix(filepath.Base(path), ".") && ext == strings.ToLower(filepath.Base(path)) {
		// dotfiles such as .DS_Store
		return false
	}
	for _, allowed := range l.config.Extensions {
		if strings.ToLower(allowed) == ext {
			return true
		}
	}
	return false
}
