package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/drip/pkg/domain"
	"github.com/aretw0/drip/pkg/script"
	"github.com/aretw0/loam"
)

// Loader builds scripts from a Loam repository: one document per step,
// ordered by the order key, plus an optional gate document.
type Loader struct {
	Repo *loam.TypedRepository[StepMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[StepMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// Open initializes a read-only Loam repository at path.
func Open(path string) (*Loader, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	// Strict mode keeps numeric frontmatter consistent across formats.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[StepMetadata](repo)), nil
}

type entry struct {
	id    string
	order int
	step  script.StepDocument
}

// Load lists every document for ordering, fetches each step body and
// compiles the script. List only carries metadata.
func (l *Loader) Load(ctx context.Context) (*script.Script, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	var (
		doc     script.Document
		gateID  string
		entries = make([]entry, 0, len(docs))
		orders  = make(map[int]string)
	)

	for _, d := range docs {
		meta := d.Data
		if meta.Role == RoleGate {
			if gateID != "" {
				return nil, fmt.Errorf("%w: gate defined in both '%s' and '%s'", domain.ErrInvalidScript, gateID, d.ID)
			}
			gateID = d.ID
			doc.Name = meta.Name
			doc.Gate = script.GateDocument{
				Reprompts:    meta.Reprompts,
				Confirmation: meta.Confirmation,
				FollowUp:     meta.FollowUp,
			}
			doc.PaymentReminders = meta.PaymentReminders
			continue
		}

		if existing, ok := orders[meta.Order]; ok {
			return nil, fmt.Errorf("%w: order %d used by both '%s' and '%s'", domain.ErrInvalidScript, meta.Order, existing, d.ID)
		}
		orders[meta.Order] = d.ID

		full, err := l.Repo.Get(ctx, d.ID)
		if err != nil {
			return nil, fmt.Errorf("loam get failed for %s: %w", d.ID, err)
		}

		entries = append(entries, entry{
			id:    d.ID,
			order: meta.Order,
			step: script.StepDocument{
				Action:          meta.Action,
				Kind:            meta.Kind,
				Text:            strings.TrimSpace(full.Content),
				Media:           meta.Media,
				DurationSeconds: meta.DurationSeconds,
				TypingDelayMs:   meta.TypingDelayMs,
				Checkpoint:      meta.Checkpoint,
			},
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].order < entries[j].order
	})
	for _, e := range entries {
		doc.Steps = append(doc.Steps, e.step)
	}

	s, err := doc.Build()
	if err != nil {
		return nil, err
	}
	return s, nil
}
