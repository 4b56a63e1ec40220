// Package entry resolves who and what to check, then runs the rule engine.
package entry

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/open-builders/giveaway-rules/internal/common/errors"
	"github.com/open-builders/giveaway-rules/internal/common/logger"
	"github.com/open-builders/giveaway-rules/internal/domain/rule"
	"github.com/open-builders/giveaway-rules/internal/service/rules"
)

// Context is the calling context of an eligibility check.
type Context string

const (
	ContextGiveaway     Context = "giveaway"
	ContextPresale      Context = "presale"
	ContextDiscordRoles Context = "discord_roles"
	ContextApplication  Context = "application"
)

// resolve maps a context to the rule owner and the engine filter it implies.
func (c Context) resolve(entityID string) (rule.Owner, []rules.EvaluateOption, bool) {
	switch c {
	case ContextGiveaway:
		return rule.Owner{Kind: rule.OwnerGiveaway, ID: entityID}, nil, true
	case ContextPresale:
		return rule.Owner{Kind: rule.OwnerPresale, ID: entityID}, nil, true
	case ContextDiscordRoles:
		return rule.Owner{Kind: rule.OwnerGiveaway, ID: entityID}, []rules.EvaluateOption{rules.WithTypes(rule.TypeDiscordRole)}, true
	case ContextApplication:
		return rule.Owner{Kind: rule.OwnerApplication, ID: entityID}, nil, true
	}
	return rule.Owner{}, nil, false
}

// Target names the entity whose rules are checked.
type Target struct {
	Context  Context
	EntityID string
}

// Evaluator is the rule engine.
type Evaluator interface {
	Evaluate(ctx context.Context, rs []rule.Rule, entrant *rule.Entrant, opts ...rules.EvaluateOption) rule.Verdict
}

// Service runs eligibility checks for stored and ad-hoc rule lists.
type Service struct {
	rules    rule.Repository
	entrants rule.EntrantRepository
	engine   Evaluator
	log      zerolog.Logger
}

func NewService(rs rule.Repository, entrants rule.EntrantRepository, engine Evaluator) *Service {
	return &Service{rules: rs, entrants: entrants, engine: engine, log: logger.Component("entry")}
}

// Check evaluates the stored rules of target for userID.
func (s *Service) Check(ctx context.Context, userID string, target Target) (rule.Verdict, error) {
	if userID == "" {
		return rule.Verdict{}, apperrors.NewValidationError("user_id", "required")
	}
	if target.EntityID == "" {
		return rule.Verdict{}, apperrors.NewValidationError("id", "required")
	}
	owner, opts, ok := target.Context.resolve(target.EntityID)
	if !ok {
		return rule.Verdict{}, apperrors.NewValidationError("context", fmt.Sprintf("unknown context %q", target.Context))
	}

	var (
		rs      []rule.Rule
		entrant *rule.Entrant
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rs, err = s.rules.ListByOwner(gctx, owner)
		return storageError(err, string(owner.Kind), owner.ID, "list rules")
	})
	g.Go(func() error {
		var err error
		entrant, err = s.entrants.GetEntrant(gctx, userID)
		return storageError(err, "user", userID, "get entrant")
	})
	if err := g.Wait(); err != nil {
		return rule.Verdict{}, err
	}

	v := s.engine.Evaluate(ctx, rs, entrant, opts...)
	s.log.Debug().
		Str("context", string(target.Context)).
		Str("entity_id", target.EntityID).
		Str("user_id", userID).
		Str("evaluation_id", v.EvaluationID).
		Bool("success", v.IsSuccess).
		Msg("eligibility checked")
	return v, nil
}

// CheckAdHoc evaluates caller-supplied rules for userID. Every rule must validate.
func (s *Service) CheckAdHoc(ctx context.Context, userID string, rs []rule.Rule) (rule.Verdict, error) {
	if userID == "" {
		return rule.Verdict{}, apperrors.NewValidationError("user_id", "required")
	}
	for i, r := range rs {
		if err := r.Validate(); err != nil {
			return rule.Verdict{}, apperrors.NewValidationError(fmt.Sprintf("rules[%d]", i), err.Error())
		}
	}
	entrant, err := s.entrants.GetEntrant(ctx, userID)
	if err := storageError(err, "user", userID, "get entrant"); err != nil {
		return rule.Verdict{}, err
	}
	return s.engine.Evaluate(ctx, rs, entrant), nil
}

func storageError(err error, resource, id, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rule.ErrNotFound):
		return apperrors.NewNotFoundError(resource, id)
	default:
		return apperrors.NewDatabaseError(op, err)
	}
}
