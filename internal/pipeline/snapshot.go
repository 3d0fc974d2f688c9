package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/aatrey56/fpl-squad-planner/internal/model"
)

// HistoryStore is the read side the pipeline consumes.
type HistoryStore interface {
	Players(ctx context.Context) ([]model.Player, error)
	History(ctx context.Context, playerID int) ([]model.GameRecord, error)
	UpcomingFixtures(ctx context.Context, round int) ([]model.FixtureContext, error)
}

// BulkHistory is implemented by stores that can return every record in one call.
type BulkHistory interface {
	AllHistory(ctx context.Context) ([]model.GameRecord, error)
}

// Snapshot is an immutable view of everything one run reads. Slices are sorted and must not be
// modified after Build.
type Snapshot struct {
	Round    int                    `json:"round"`
	TakenAt  time.Time              `json:"taken_at"`
	Roster   []model.Player         `json:"players"`
	Records  []model.GameRecord     `json:"history"`
	Fixtures []model.FixtureContext `json:"fixtures"`

	byPlayer map[int][]model.GameRecord
}

// Build reads the store once and freezes the result.
func Build(ctx context.Context, st HistoryStore, round int) (*Snapshot, error) {
	players, err := st.Players(ctx)
	if err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	var history []model.GameRecord
	if bulk, ok := st.(BulkHistory); ok {
		history, err = bulk.AllHistory(ctx)
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
	} else {
		for _, p := range players {
			recs, err := st.History(ctx, p.ID)
			if err != nil {
				return nil, fmt.Errorf("load history for %d: %w", p.ID, err)
			}
			history = append(history, recs...)
		}
	}
	fixtures, err := st.UpcomingFixtures(ctx, round)
	if err != nil {
		return nil, fmt.Errorf("load fixtures for round %d: %w", round, err)
	}
	return NewSnapshot(round, players, history, fixtures), nil
}

// NewSnapshot copies and sorts its inputs.
func NewSnapshot(round int, players []model.Player, history []model.GameRecord, fixtures []model.FixtureContext) *Snapshot {
	s := &Snapshot{
		Round:    round,
		TakenAt:  time.Now().UTC(),
		Roster:   append([]model.Player(nil), players...),
		Records:  append([]model.GameRecord(nil), history...),
		Fixtures: append([]model.FixtureContext(nil), fixtures...),
	}
	s.freeze()
	return s
}

func (s *Snapshot) freeze() {
	sort.Slice(s.Roster, func(i, j int) bool { return s.Roster[i].ID < s.Roster[j].ID })
	sort.Slice(s.Records, func(i, j int) bool {
		a, b := s.Records[i], s.Records[j]
		if a.PlayerID != b.PlayerID {
			return a.PlayerID < b.PlayerID
		}
		if a.Round != b.Round {
			return a.Round < b.Round
		}
		return a.FixtureID < b.FixtureID
	})
	sort.Slice(s.Fixtures, func(i, j int) bool {
		a, b := s.Fixtures[i], s.Fixtures[j]
		if a.FixtureID != b.FixtureID {
			return a.FixtureID < b.FixtureID
		}
		return a.Team < b.Team
	})

	s.byPlayer = make(map[int][]model.GameRecord, len(s.Roster))
	for i := 0; i < len(s.Records); {
		j := i
		for j < len(s.Records) && s.Records[j].PlayerID == s.Records[i].PlayerID {
			j++
		}
		s.byPlayer[s.Records[i].PlayerID] = s.Records[i:j:j]
		i = j
	}
}

func (s *Snapshot) Players(ctx context.Context) ([]model.Player, error) {
	return append([]model.Player(nil), s.Roster...), nil
}

func (s *Snapshot) History(ctx context.Context, playerID int) ([]model.GameRecord, error) {
	return append([]model.GameRecord(nil), s.byPlayer[playerID]...), nil
}

func (s *Snapshot) UpcomingFixtures(ctx context.Context, round int) ([]model.FixtureContext, error) {
	out := make([]model.FixtureContext, 0, len(s.Fixtures))
	for _, f := range s.Fixtures {
		if f.Round == round {
			out = append(out, f)
		}
	}
	return out, nil
}

// WriteFile stores the snapshot as msgpack so a run can be replayed later.
func (s *Snapshot) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func ReadSnapshot(path string) (*Snapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.SetCustomStructTag("json")
	var s Snapshot
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	s.freeze()
	return &s, nil
}
