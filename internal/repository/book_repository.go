package repository

import (
	"context"

	"gorm.io/gorm"

	"booklog/internal/model"
)

// Sort keys accepted by ListByOwner.
const (
	SortRecent = "recent"
	SortRating = "rating"
)

// BookRepository defines book persistence operations. Every read and
// write below the Create call carries an owner predicate; there is no
// way to reach another user's rows through this interface.
type BookRepository interface {
	Create(ctx context.Context, book *model.Book) error
	ListByOwner(ctx context.Context, ownerID uint, sort string) ([]model.Book, error)
	FindOwned(ctx context.Context, ownerID, bookID uint) (*model.Book, error)
	UpdateOwned(ctx context.Context, ownerID, bookID uint, fields map[string]interface{}) (int64, error)
	DeleteOwned(ctx context.Context, ownerID, bookID uint) (int64, error)
}

type bookRepository struct {
	db *gorm.DB
}

// NewBookRepository builds a GORM-backed repository.
func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(ctx context.Context, book *model.Book) error {
	return r.db.WithContext(ctx).Create(book).Error
}

// ListByOwner returns the owner's books in the requested order. Any
// unrecognized sort key falls back to most-recently-read first.
func (r *bookRepository) ListByOwner(ctx context.Context, ownerID uint, sort string) ([]model.Book, error) {
	order := "read_date DESC NULLS LAST, created_at DESC"
	if sort == SortRating {
		order = "rating DESC NULLS LAST, read_date DESC NULLS LAST"
	}

	var books []model.Book
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order(order).
		Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) FindOwned(ctx context.Context, ownerID, bookID uint) (*model.Book, error) {
	var book model.Book
	if err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", bookID, ownerID).
		First(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// UpdateOwned applies fields to the row matching both id and owner and
// reports how many rows matched. Zero means the book does not exist or
// belongs to someone else; callers must not distinguish the two.
func (r *bookRepository) UpdateOwned(ctx context.Context, ownerID, bookID uint, fields map[string]interface{}) (int64, error) {
	tx := r.db.WithContext(ctx).Model(&model.Book{}).
		Where("id = ? AND owner_id = ?", bookID, ownerID).
		Updates(fields)
	if tx.Error != nil {
		return 0, tx.Error
	}
	return tx.RowsAffected, nil
}

// DeleteOwned removes the row matching both id and owner, reporting the
// matched row count like UpdateOwned.
func (r *bookRepository) DeleteOwned(ctx context.Context, ownerID, bookID uint) (int64, error) {
	tx := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", bookID, ownerID).
		Delete(&model.Book{})
	if tx.Error != nil {
		return 0, tx.Error
	}
	return tx.RowsAffected, nil
}
