package numbers

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"

	"reqtx/internal/bootstrap/logging"
	domainnumbers "reqtx/internal/domain/numbers"
	"reqtx/internal/errs"
	"reqtx/internal/ports"
)

var (
	ErrNotPositive = domainnumbers.ErrNotPositive
	ErrOutOfRange  = domainnumbers.ErrOutOfRange
)

type Service struct {
	repo   ports.NumberRepository
	uow    ports.UnitOfWork
	random func() int64
}

func NewService(repo ports.NumberRepository, uow ports.UnitOfWork) *Service {
	return &Service{
		repo: repo,
		uow:  uow,
		random: func() int64 {
			return rand.Int64N(2*domainnumbers.MaxMagnitude+1) - domainnumbers.MaxMagnitude
		},
	}
}

type GenerateInput struct {
	// Value fixes the number; nil draws a random one.
	Value *int64
}

func (s *Service) pick(in GenerateInput) (int64, error) {
	value := s.random()
	if in.Value != nil {
		value = *in.Value
	}
	if err := domainnumbers.Validate(value); err != nil {
		return 0, err
	}
	return value, nil
}

// Generate inserts a number in the current transaction. A non-positive
// number is still inserted but reported as ErrNotPositive, so the caller's
// failed outcome rolls it back.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (ports.Number, error) {
	value, err := s.pick(in)
	if err != nil {
		return ports.Number{}, err
	}

	var n ports.Number
	err = s.uow.WithTx(ctx, func(ctx context.Context) error {
		inserted, err := s.repo.Insert(ctx, value)
		if err != nil {
			return errs.Wrap(err, "insert number")
		}
		n = inserted
		if !domainnumbers.Accepted(value) {
			return ErrNotPositive
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrNotPositive) {
		return ports.Number{}, err
	}

	logging.Info(
		logging.WithAttrs(ctx, slog.String("component", "usecase.numbers")),
		"number generated",
		slog.Int64("value", value),
		slog.Bool("accepted", err == nil),
	)
	return n, err
}

// GenerateCommitted inserts a number and commits it right away, whatever
// happens to the rest of the request.
func (s *Service) GenerateCommitted(ctx context.Context, in GenerateInput) (ports.Number, error) {
	value, err := s.pick(in)
	if err != nil {
		return ports.Number{}, err
	}

	n, err := s.repo.Insert(ctx, value)
	if err != nil {
		return ports.Number{}, errs.Wrap(err, "insert number")
	}
	if err := s.uow.Commit(ctx); err != nil {
		return ports.Number{}, errs.Wrap(err, "commit number")
	}
	return n, nil
}

// Abort rolls back the request transaction after part of a response has
// already gone out, so the status can no longer carry the failure.
func (s *Service) Abort(ctx context.Context) error {
	return s.uow.Rollback(ctx)
}

func (s *Service) Each(ctx context.Context, fn func(ports.Number) error) error {
	return s.uow.WithTx(ctx, func(ctx context.Context) error {
		return s.repo.Each(ctx, fn)
	})
}

func (s *Service) List(ctx context.Context) ([]ports.Number, error) {
	items := make([]ports.Number, 0, 16)
	if err := s.Each(ctx, func(n ports.Number) error {
		items = append(items, n)
		return nil
	}); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.uow.WithTx(ctx, func(ctx context.Context) error {
		count, err := s.repo.Count(ctx)
		n = count
		return err
	})
	return n, err
}
