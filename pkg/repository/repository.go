package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository is the generic gorm store shared by the simple aggregates.
// Finders return (nil, nil) when nothing matches.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Create(ctx context.Context, entity *T) error
	Save(ctx context.Context, entity *T) error
	FindOne(ctx context.Context, query any, args ...any) (*T, error)
	Find(ctx context.Context, order string, query any, args ...any) ([]T, error)
	Count(ctx context.Context, query any, args ...any) (int64, error)
}

type store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (s *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	if tx == nil {
		return s
	}
	return &store[T]{db: tx}
}

func (s *store[T]) Create(ctx context.Context, entity *T) error {
	return s.db.WithContext(ctx).Create(entity).Error
}

func (s *store[T]) Save(ctx context.Context, entity *T) error {
	return s.db.WithContext(ctx).Save(entity).Error
}

func (s *store[T]) FindOne(ctx context.Context, query any, args ...any) (*T, error) {
	var item T
	err := s.db.WithContext(ctx).Where(query, args...).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (s *store[T]) Find(ctx context.Context, order string, query any, args ...any) ([]T, error) {
	var items []T
	stmt := s.db.WithContext(ctx).Where(query, args...)
	if order != "" {
		stmt = stmt.Order(order)
	}
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *store[T]) Count(ctx context.Context, query any, args ...any) (int64, error) {
	var n int64
	var model T
	err := s.db.WithContext(ctx).Model(&model).Where(query, args...).Count(&n).Error
	return n, err
}
