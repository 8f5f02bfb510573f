package usi

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/hailam/shogiplay/internal/book"
	"github.com/hailam/shogiplay/internal/engine"
)

// Entering-king rule names offered by the EnteringKingRule combo.
const (
	RuleNone  = "NoEnteringKing"
	RuleCSA27 = "CSARule27"
)

// MaterialEval is the EvalFile value that selects the material-only
// evaluator instead of a weight file.
const MaterialEval = "material"

const emptyString = "<empty>"

// Settings are the option values a session starts with.
type Settings struct {
	HashMB           int
	Threads          int
	MultiPV          int
	EvalFile         string
	BookFile         string
	Ponder           bool
	NetworkDelay     time.Duration
	MinThinkingTime  time.Duration
	EnteringKingRule bool
}

// DefaultSettings mirrors the config defaults.
func DefaultSettings() Settings {
	return Settings{
		HashMB:           256,
		Threads:          1,
		MultiPV:          1,
		NetworkDelay:     engine.DefaultTimeOptions.NetworkDelay,
		MinThinkingTime:  engine.DefaultTimeOptions.MinimumThinkingTime,
		EnteringKingRule: true,
	}
}

type optionKind int

const (
	spinOption optionKind = iota
	checkOption
	stringOption
	comboOption
)

type option struct {
	name     string
	kind     optionKind
	min, max int
	vars     []string
	get      func(u *USI) string
	set      func(u *USI, value string) error
}

var options = []option{
	{
		name: "USI_Hash", kind: spinOption, min: 1, max: 65536,
		get: func(u *USI) string { return strconv.Itoa(u.settings.HashMB) },
		set: func(u *USI, v string) error {
			n, err := parseSpin(v, 1, 65536)
			if err != nil {
				return err
			}
			u.settings.HashMB = n
			u.engine.ResizeHash(n)
			return nil
		},
	},
	{
		name: "Threads", kind: spinOption, min: 1, max: 512,
		get: func(u *USI) string { return strconv.Itoa(u.settings.Threads) },
		set: func(u *USI, v string) error {
			n, err := parseSpin(v, 1, 512)
			if err != nil {
				return err
			}
			u.settings.Threads = n
			u.engine.SetThreads(n)
			return nil
		},
	},
	{
		name: "MultiPV", kind: spinOption, min: 1, max: engine.MaxMultiPV,
		get: func(u *USI) string { return strconv.Itoa(u.settings.MultiPV) },
		set: func(u *USI, v string) error {
			n, err := parseSpin(v, 1, engine.MaxMultiPV)
			if err != nil {
				return err
			}
			u.settings.MultiPV = n
			u.engine.SetMultiPV(n)
			return nil
		},
	},
	{
		name: "EvalFile", kind: stringOption,
		get: func(u *USI) string { return orEmpty(u.settings.EvalFile) },
		set: func(u *USI, v string) error {
			u.settings.EvalFile = fromEmpty(v)
			u.evalLoaded = false
			return nil
		},
	},
	{
		name: "BookFile", kind: stringOption,
		get: func(u *USI) string { return orEmpty(u.settings.BookFile) },
		set: func(u *USI, v string) error {
			u.settings.BookFile = fromEmpty(v)
			return u.loadBook()
		},
	},
	{
		name: "USI_Ponder", kind: checkOption,
		get: func(u *USI) string { return strconv.FormatBool(u.settings.Ponder) },
		set: func(u *USI, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			u.settings.Ponder = b
			return nil
		},
	},
	{
		name: "NetworkDelay", kind: spinOption, min: 0, max: 10000,
		get: func(u *USI) string { return strconv.FormatInt(u.settings.NetworkDelay.Milliseconds(), 10) },
		set: func(u *USI, v string) error {
			n, err := parseSpin(v, 0, 10000)
			if err != nil {
				return err
			}
			u.settings.NetworkDelay = time.Duration(n) * time.Millisecond
			u.applyTimeOptions()
			return nil
		},
	},
	{
		name: "MinimumThinkingTime", kind: spinOption, min: 0, max: 60000,
		get: func(u *USI) string { return strconv.FormatInt(u.settings.MinThinkingTime.Milliseconds(), 10) },
		set: func(u *USI, v string) error {
			n, err := parseSpin(v, 0, 60000)
			if err != nil {
				return err
			}
			u.settings.MinThinkingTime = time.Duration(n) * time.Millisecond
			u.applyTimeOptions()
			return nil
		},
	},
	{
		name: "EnteringKingRule", kind: comboOption, vars: []string{RuleNone, RuleCSA27},
		get: func(u *USI) string { return lo.Ternary(u.settings.EnteringKingRule, RuleCSA27, RuleNone) },
		set: func(u *USI, v string) error {
			switch v {
			case RuleNone:
				u.settings.EnteringKingRule = false
			case RuleCSA27:
				u.settings.EnteringKingRule = true
			default:
				return fmt.Errorf("unknown rule %q", v)
			}
			u.engine.SetDeclarationRule(u.settings.EnteringKingRule)
			return nil
		},
	},
}

// parseSpin parses a spin value, clamping it into range.
func parseSpin(v string, minV, maxV int) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	return lo.Clamp(n, minV, maxV), nil
}

func orEmpty(s string) string {
	return lo.Ternary(s == "", emptyString, s)
}

func fromEmpty(s string) string {
	return lo.Ternary(s == emptyString, "", s)
}

// describe renders the "option name ..." line for the usi command.
func (o option) describe(u *USI) string {
	def := o.get(u)
	switch o.kind {
	case spinOption:
		return fmt.Sprintf("option name %s type spin default %s min %d max %d", o.name, def, o.min, o.max)
	case checkOption:
		return fmt.Sprintf("option name %s type check default %s", o.name, def)
	case comboOption:
		vars := lo.Map(o.vars, func(v string, _ int) string { return "var " + v })
		return fmt.Sprintf("option name %s type combo default %s %s", o.name, def, strings.Join(vars, " "))
	}
	return fmt.Sprintf("option name %s type string default %s", o.name, def)
}

// parseSetOption splits "name <name...> value <value...>".
func parseSetOption(args []string) (name, value string) {
	var names, values []string
	readingName, readingValue := false, false
	for _, arg := range args {
		switch {
		case arg == "name" && !readingValue:
			readingName, readingValue = true, false
		case arg == "value" && readingName:
			readingName, readingValue = false, true
		case readingName:
			names = append(names, arg)
		case readingValue:
			values = append(values, arg)
		}
	}
	return strings.Join(names, " "), strings.Join(values, " ")
}

func (u *USI) handleSetOption(args []string) {
	name, value := parseSetOption(args)
	opt, ok := lo.Find(options, func(o option) bool { return strings.EqualFold(o.name, name) })
	if !ok {
		u.infoString("unknown option %s", name)
		return
	}
	if err := opt.set(u, value); err != nil {
		u.infoString("setoption %s: %v", opt.name, err)
	}
}

func (u *USI) applyTimeOptions() {
	u.engine.SetTimeOptions(engine.TimeOptions{
		NetworkDelay:        u.settings.NetworkDelay,
		MinimumThinkingTime: u.settings.MinThinkingTime,
	})
}

// loadBook replaces the book with BookFile; an empty name unloads it.
func (u *USI) loadBook() error {
	if u.settings.BookFile == "" {
		u.book = nil
		return nil
	}
	b, err := book.LoadFile(u.settings.BookFile)
	if err != nil {
		u.book = nil
		return err
	}
	u.book = b
	log.Info().Str("file", u.settings.BookFile).Int("positions", b.Size()).Msg("book loaded")
	return nil
}
