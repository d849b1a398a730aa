package inbox

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Fixture is a set of seekers, opportunities and pairings loaded from a JSON
// document. Pairings reference seekers and opportunities by id.
type Fixture struct {
	Seekers       []*Seeker      `mapstructure:"seekers"`
	Opportunities []*Opportunity `mapstructure:"opportunities"`
	Pairings      []*Pairing     `mapstructure:"-"`
}

type rawPairing struct {
	ID            int64     `mapstructure:"id"`
	SeekerID      int64     `mapstructure:"seeker_id"`
	OpportunityID int64     `mapstructure:"opportunity_id"`
	Messages      []Message `mapstructure:"messages"`
	Bucket        string    `mapstructure:"bucket"`
	UpdatedAt     time.Time `mapstructure:"updated_at"`
}

// LoadFixture reads a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture %q: %w", path, err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse fixture %q: %w", path, err)
	}

	return DecodeFixture(raw)
}

// DecodeFixture builds a fixture from loosely typed data. Delimited strings
// are accepted where lists are expected ("Go, SQL" → ["Go" "SQL"]).
func DecodeFixture(raw map[string]any) (*Fixture, error) {
	fixture := &Fixture{}
	if err := decode(raw, fixture); err != nil {
		return nil, err
	}

	var pairings []rawPairing
	if err := decode(raw["pairings"], &pairings); err != nil {
		return nil, err
	}

	seekers := &Seekers{Items: fixture.Seekers}
	opportunities := &Opportunities{Items: fixture.Opportunities}
	for _, p := range pairings {
		fixture.Pairings = append(fixture.Pairings, &Pairing{
			ID:          p.ID,
			Seeker:      seekers.FindByID(p.SeekerID),
			Opportunity: opportunities.FindByID(p.OpportunityID),
			Messages:    p.Messages,
			Bucket:      p.Bucket,
			UpdatedAt:   p.UpdatedAt,
		})
	}

	return fixture, nil
}

func decode(input, target any) error {
	if input == nil {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			splitListHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return err
	}

	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("decode fixture: %w", err)
	}
	return nil
}

// splitListHook turns comma, semicolon or newline separated strings into
// string slices.
func splitListHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Slice || to.Elem().Kind() != reflect.String {
		return data, nil
	}

	return SplitList(data.(string)), nil
}

// SplitList splits a delimited list, trimming entries and dropping empty ones.
func SplitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
