// Package usi implements the Universal Shogi Interface front end.
package usi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/hailam/shogiplay/internal/board"
	"github.com/hailam/shogiplay/internal/book"
	"github.com/hailam/shogiplay/internal/engine"
	"github.com/hailam/shogiplay/internal/nnue"
	"github.com/hailam/shogiplay/internal/storage"
)

// ErrPositionRestore marks a position command whose move list could not be
// replayed. The next go answers "bestmove resign".
var ErrPositionRestore = errors.New("position restore failed")

// EvaluatorLoader builds an evaluator factory from an EvalFile value.
type EvaluatorLoader func(path string) (engine.EvaluatorFactory, error)

// LoadEvaluator is the default EvaluatorLoader: the material evaluator for
// MaterialEval, otherwise an NNUE weight file.
func LoadEvaluator(path string) (engine.EvaluatorFactory, error) {
	switch path {
	case "":
		return nil, fmt.Errorf("%w: no EvalFile set", nnue.ErrEvaluatorFile)
	case MaterialEval:
		return engine.MaterialFactory(), nil
	}
	net, err := nnue.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return engine.NNUEFactory(net), nil
}

// writer serializes output from the command loop and the search goroutine.
type writer struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *writer) println(s string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	io.WriteString(w.w, s+"\n")
}

func (w *writer) printf(format string, args ...any) {
	w.println(fmt.Sprintf(format, args...))
}

// USI implements the Universal Shogi Interface protocol.
type USI struct {
	engine   *engine.Engine
	in       io.Reader
	out      *writer
	settings Settings

	loadEval   EvaluatorLoader
	evalLoaded bool
	evalErr    error

	book        *book.Book
	store       *storage.Storage
	recordGames bool

	// Current game as given by the last good position command
	position   *board.Position
	startSFEN  string
	moves      []string
	restoreErr error
	gameStart  time.Time

	// Search state
	searchDone chan struct{}
	cancel     context.CancelFunc
}

// Option configures a USI session.
type Option func(*USI)

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(u *USI) {
		u.in = in
		u.out = &writer{w: out}
	}
}

// WithSettings sets the initial option values.
func WithSettings(s Settings) Option {
	return func(u *USI) { u.settings = s }
}

// WithStorage enables the analysis cache and, when record is set, saving
// finished games.
func WithStorage(s *storage.Storage, record bool) Option {
	return func(u *USI) {
		u.store = s
		u.recordGames = record
	}
}

// WithEvaluatorLoader replaces LoadEvaluator.
func WithEvaluatorLoader(l EvaluatorLoader) Option {
	return func(u *USI) { u.loadEval = l }
}

// New creates a USI protocol handler driving eng.
func New(eng *engine.Engine, opts ...Option) *USI {
	u := &USI{
		engine:    eng,
		in:        os.Stdin,
		out:       &writer{w: os.Stdout},
		settings:  DefaultSettings(),
		loadEval:  LoadEvaluator,
		position:  board.NewPosition(),
		startSFEN: board.StartSFEN,
		gameStart: time.Now(),
	}
	for _, o := range opts {
		o(u)
	}
	u.applyTimeOptions()
	eng.SetDeclarationRule(u.settings.EnteringKingRule)
	eng.SetMultiPV(u.settings.MultiPV)
	if err := u.loadBook(); err != nil {
		log.Warn().Err(err).Str("file", u.settings.BookFile).Msg("book not loaded")
	}
	return u
}

// Position returns a copy of the current position.
func (u *USI) Position() *board.Position {
	return u.position.Copy()
}

// Run reads commands until quit or end of input.
func (u *USI) Run() error {
	scanner := bufio.NewScanner(u.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if !u.Execute(scanner.Text()) {
			return nil
		}
	}
	u.handleStop()
	return scanner.Err()
}

// Execute runs one command line. It returns false after quit.
func (u *USI) Execute(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd := parts[0]
	args := parts[1:]
	log.Debug().Str("cmd", line).Msg("usi <")

	switch cmd {
	case "usi":
		u.handleUSI()
	case "isready":
		u.handleIsReady()
	case "usinewgame":
		u.handleNewGame()
	case "position":
		u.handlePosition(args)
	case "go":
		u.handleGo(args)
	case "stop":
		u.handleStop()
	case "ponderhit":
		u.engine.PonderHit()
	case "setoption":
		u.handleSetOption(args)
	case "gameover":
		u.handleGameOver(args)
	case "quit":
		u.handleStop()
		return false
	// Debug commands
	case "d":
		u.out.println(u.position.String())
	case "perft":
		u.handlePerft(args)
	default:
		u.infoString("unknown command %s", cmd)
	}
	return true
}

// Wait blocks until the running search, if any, has sent its bestmove.
func (u *USI) Wait() {
	if u.searchDone != nil {
		<-u.searchDone
	}
}

func (u *USI) infoString(format string, args ...any) {
	u.out.printf("info string "+format, args...)
}

// handleUSI responds to the "usi" command.
func (u *USI) handleUSI() {
	u.out.println("id name ShogiPlay")
	u.out.println("id author ShogiPlay Team")
	for _, o := range options {
		u.out.println(o.describe(u))
	}
	u.out.println("usiok")
}

// handleIsReady loads the evaluator if EvalFile changed. readyok is sent
// either way; a failed load is reported and makes every go resign.
func (u *USI) handleIsReady() {
	if err := u.ensureEvaluator(); err != nil {
		u.infoString("evaluator: %v", err)
	}
	u.out.println("readyok")
}

// LoadConfiguredEvaluator loads EvalFile now rather than at the first
// isready.
func (u *USI) LoadConfiguredEvaluator() error {
	return u.ensureEvaluator()
}

func (u *USI) ensureEvaluator() error {
	if u.evalLoaded {
		return u.evalErr
	}
	u.evalLoaded = true
	f, err := u.loadEval(u.settings.EvalFile)
	if err != nil {
		u.evalErr = err
		u.engine.SetEvaluator(nil)
		log.Error().Err(err).Str("file", u.settings.EvalFile).Msg("evaluator not loaded")
		return err
	}
	u.evalErr = nil
	u.engine.SetEvaluator(f)
	log.Info().Str("file", u.settings.EvalFile).Msg("evaluator loaded")
	return nil
}

// handleNewGame resets the engine for a new game.
func (u *USI) handleNewGame() {
	u.handleStop()
	u.engine.NewGame()
	u.position = board.NewPosition()
	u.startSFEN = board.StartSFEN
	u.moves = nil
	u.restoreErr = nil
	u.gameStart = time.Now()
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves 7g7f 3c3d
//   - position sfen <sfen>
//   - position sfen <sfen> moves 7g7f
//
// A malformed SFEN keeps the previous position. A bad move marks the
// restore as failed.
func (u *USI) handlePosition(args []string) {
	if len(args) == 0 {
		u.infoString("position: missing arguments")
		return
	}

	movesAt := slices.Index(args, "moves")
	head := args
	var moveArgs []string
	if movesAt >= 0 {
		head, moveArgs = args[:movesAt], args[movesAt+1:]
	}
	if len(head) == 0 {
		u.infoString("position: missing startpos or sfen")
		return
	}

	var sfen string
	switch head[0] {
	case "startpos":
		sfen = board.StartSFEN
	case "sfen":
		sfen = strings.Join(head[1:], " ")
	default:
		u.infoString("position: expected startpos or sfen, got %s", head[0])
		return
	}

	pos, err := board.ParseSFEN(sfen)
	if err != nil {
		u.infoString("position: %v", err)
		return
	}
	start := pos.SFEN()

	for _, s := range moveArgs {
		m, err := board.ParseMove(s, pos)
		if err != nil {
			u.restoreErr = fmt.Errorf("%w: %w", ErrPositionRestore, err)
			u.infoString("position: %v", u.restoreErr)
			return
		}
		pos.MakeMove(m)
	}

	u.position = pos
	u.startSFEN = start
	u.moves = slices.Clone(moveArgs)
	u.restoreErr = nil
}

// parseGo parses "go" command arguments.
func parseGo(args []string) (engine.Limits, error) {
	var limits engine.Limits

	next := func(i int) (int64, error) {
		if i+1 >= len(args) {
			return 0, fmt.Errorf("go %s: missing value", args[i])
		}
		n, err := strconv.ParseInt(args[i+1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("go %s: %w", args[i], err)
		}
		return max(n, 0), nil
	}
	ms := func(n int64) time.Duration { return time.Duration(n) * time.Millisecond }

	for i := 0; i < len(args); i++ {
		var n int64
		var err error
		switch args[i] {
		case "infinite":
			limits.Infinite = true
			continue
		case "ponder":
			limits.Ponder = true
			continue
		case "mate":
			// The count is optional; "infinite" or none searches until found.
			limits.Mate = math.MaxInt32
			if i+1 < len(args) {
				if moves, err := strconv.Atoi(args[i+1]); err == nil {
					limits.Mate = max(moves, 1)
					i++
				} else if args[i+1] == "infinite" {
					i++
				}
			}
			continue
		case "depth", "nodes", "movetime", "btime", "wtime", "binc", "winc", "byoyomi", "movestogo":
			if n, err = next(i); err != nil {
				return limits, err
			}
		default:
			continue
		}
		switch args[i] {
		case "depth":
			limits.Depth = int(n)
		case "nodes":
			limits.Nodes = uint64(n)
		case "movetime":
			limits.MoveTime = ms(n)
		case "btime":
			limits.Time[board.Black] = ms(n)
		case "wtime":
			limits.Time[board.White] = ms(n)
		case "binc":
			limits.Inc[board.Black] = ms(n)
		case "winc":
			limits.Inc[board.White] = ms(n)
		case "byoyomi":
			limits.Byoyomi = ms(n)
		case "movestogo":
			limits.MovesToGo = int(n)
		}
		i++
	}
	return limits, nil
}

// handleGo starts a search with the given parameters. The reply is sent
// from a goroutine so stop and ponderhit stay responsive.
func (u *USI) handleGo(args []string) {
	u.handleStop()

	if u.restoreErr != nil {
		u.infoString("%v", u.restoreErr)
		u.out.println("bestmove resign")
		return
	}
	limits, err := parseGo(args)
	if err != nil {
		u.infoString("%v", err)
		u.out.println("bestmove resign")
		return
	}
	if err := u.ensureEvaluator(); err != nil {
		u.infoString("evaluator: %v", err)
		u.out.println("bestmove resign")
		return
	}

	pos := u.position.Copy()
	if !limits.Infinite && !limits.Ponder && limits.Mate == 0 {
		if e, ok := u.book.Probe(pos); ok {
			u.infoString("book %s", e.Move)
			u.sendBestMove(e.Move, e.Ponder)
			return
		}
		if u.cachedAnalysis(pos, limits) {
			return
		}
	}

	u.engine.OnInfo = u.sendInfo
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	u.cancel, u.searchDone = cancel, done

	go func() {
		defer close(done)
		defer cancel()

		res, err := u.engine.Go(ctx, pos, limits)
		switch {
		case errors.Is(err, engine.ErrNoEvaluator):
			u.infoString("evaluator: %v", err)
			u.out.println("bestmove resign")
			return
		case err != nil:
			u.infoString("search: %v", err)
			u.out.println("bestmove resign")
			return
		case res.Declare:
			u.out.println("bestmove win")
			return
		case res.BestMove == board.NoMove:
			u.out.println("bestmove resign")
			return
		}
		u.saveAnalysis(pos, res)
		u.sendBestMove(res.BestMove, res.PonderMove)
	}()
}

func (u *USI) sendBestMove(best, ponder board.Move) {
	if u.settings.Ponder && ponder.IsOK() {
		u.out.printf("bestmove %s ponder %s", best, ponder)
		return
	}
	u.out.printf("bestmove %s", best)
}

// cachedAnalysis answers a depth-limited go from the analysis cache when a
// stored result is at least as deep.
func (u *USI) cachedAnalysis(pos *board.Position, limits engine.Limits) bool {
	if u.store == nil || limits.Depth <= 0 {
		return false
	}
	a, err := u.store.LoadAnalysis(pos.SFEN())
	if err != nil || a.Depth < limits.Depth {
		return false
	}
	best, err := board.ParseMove(a.BestMove, pos)
	if err != nil {
		return false
	}
	ponder := board.NoMove
	if a.Ponder != "" {
		after := pos.Copy()
		after.MakeMove(best)
		if m, err := board.ParseMove(a.Ponder, after); err == nil {
			ponder = m
		}
	}
	u.out.printf("info depth %d score %s nodes %d pv %s",
		a.Depth, engine.ScoreToUSI(a.Score), a.Nodes, strings.Join(a.PV, " "))
	u.sendBestMove(best, ponder)
	return true
}

func (u *USI) saveAnalysis(pos *board.Position, res engine.Result) {
	if u.store == nil || res.Depth <= 0 {
		return
	}
	a := storage.Analysis{
		BestMove: res.BestMove.String(),
		Score:    res.Score,
		Depth:    res.Depth,
		Nodes:    res.Nodes,
		PV:       lo.Map(res.PV, func(m board.Move, _ int) string { return m.String() }),
	}
	if res.PonderMove.IsOK() {
		a.Ponder = res.PonderMove.String()
	}
	if prev, err := u.store.LoadAnalysis(pos.SFEN()); err == nil && prev.Depth > a.Depth {
		return
	}
	if err := u.store.SaveAnalysis(pos.SFEN(), a); err != nil {
		log.Warn().Err(err).Msg("analysis not saved")
	}
}

// sendInfo outputs search info in USI format.
func (u *USI) sendInfo(info engine.SearchInfo) {
	ms := info.Time.Milliseconds()
	var nps uint64
	if info.Time > 0 {
		nps = uint64(float64(info.Nodes) / info.Time.Seconds())
	}
	line := fmt.Sprintf("info depth %d seldepth %d", info.Depth, info.SelDepth)
	if u.settings.MultiPV > 1 {
		line += fmt.Sprintf(" multipv %d", info.MultiPV)
	}
	line += fmt.Sprintf(" score %s nodes %d nps %d hashfull %d time %d",
		engine.ScoreToUSI(info.Score), info.Nodes, nps, info.HashFull, ms)
	if len(info.PV) > 0 {
		pv := lo.Map(info.PV, func(m board.Move, _ int) string { return m.String() })
		line += " pv " + strings.Join(pv, " ")
	}
	u.out.println(line)
}

// handleStop stops the current search and waits for its bestmove.
func (u *USI) handleStop() {
	if u.searchDone == nil {
		return
	}
	u.engine.Stop()
	u.cancel()
	<-u.searchDone
	u.searchDone, u.cancel = nil, nil
}

// handleGameOver ends the game and records it when enabled.
func (u *USI) handleGameOver(args []string) {
	u.handleStop()
	result := "unknown"
	if len(args) > 0 {
		result = args[0]
	}
	if u.store == nil || !u.recordGames {
		return
	}
	rec := storage.GameRecord{
		Started:   u.gameStart,
		StartSFEN: u.startSFEN,
		Moves:     slices.Clone(u.moves),
		Result:    result,
		EngineAs:  lo.Ternary(u.position.SideToMove == board.Black, "black", "white"),
	}
	id, err := u.store.SaveGame(rec)
	if err != nil {
		log.Warn().Err(err).Msg("game not saved")
		return
	}
	log.Info().Str("id", id.String()).Str("result", result).Int("moves", len(rec.Moves)).Msg("game saved")
}

// handlePerft runs a divided perft on the current position.
func (u *USI) handlePerft(args []string) {
	depth := 3
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			u.infoString("perft: bad depth %q", args[0])
			return
		}
		depth = n
	}

	start := time.Now()
	div := u.position.Copy().PerftDivide(depth)
	elapsed := time.Since(start)

	moves := lo.Keys(div)
	slices.SortFunc(moves, func(a, b board.Move) int { return strings.Compare(a.String(), b.String()) })
	var total uint64
	for _, m := range moves {
		u.out.printf("%s: %d", m, div[m])
		total += div[m]
	}
	u.out.printf("Nodes: %d", total)
	u.out.printf("Time: %v", elapsed)
	if elapsed > 0 {
		u.out.printf("NPS: %.0f", float64(total)/elapsed.Seconds())
	}
}
