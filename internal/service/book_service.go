package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"booklog/internal/covers"
	errs "booklog/internal/errors"
	"booklog/internal/model"
	"booklog/internal/repository"
)

// BookInput carries raw form values for a book. Rating and read date
// arrive as strings and are parsed leniently: malformed values mean
// "absent", never a failed request.
type BookInput struct {
	Title    string
	Author   string
	Rating   string
	Review   string
	ReadDate string
	CoverURL string
}

// BookService exposes the owner-scoped CRUD operations. The owner id
// always comes from the resolved session, never from the client.
type BookService interface {
	List(ctx context.Context, ownerID uint, sort string) ([]model.Book, error)
	Create(ctx context.Context, ownerID uint, input BookInput) (*model.Book, error)
	GetForEdit(ctx context.Context, ownerID, bookID uint) (*model.Book, error)
	Update(ctx context.Context, ownerID, bookID uint, input BookInput) error
	Delete(ctx context.Context, ownerID, bookID uint) error
	FetchCover(ctx context.Context, title string) (string, error)
}

type bookService struct {
	books  repository.BookRepository
	covers *covers.Client
}

// NewBookService builds a BookService with repository and cover client.
func NewBookService(books repository.BookRepository, covers *covers.Client) BookService {
	return &bookService{books: books, covers: covers}
}

// List returns the owner's books in the requested order. An owner with
// no books gets an empty slice, not an error.
func (s *bookService) List(ctx context.Context, ownerID uint, sort string) ([]model.Book, error) {
	books, err := s.books.ListByOwner(ctx, ownerID, sort)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	if books == nil {
		books = []model.Book{}
	}
	return books, nil
}

// Create inserts a book for the owner. Whatever owner id the client may
// have supplied is discarded.
func (s *bookService) Create(ctx context.Context, ownerID uint, input BookInput) (*model.Book, error) {
	book := &model.Book{
		Title:    input.Title,
		Author:   input.Author,
		Rating:   parseRating(input.Rating),
		Review:   parseReview(input.Review),
		ReadDate: parseReadDate(input.ReadDate),
		CoverURL: input.CoverURL,
		OwnerID:  ownerID,
	}
	if err := s.books.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}
	return book, nil
}

func (s *bookService) GetForEdit(ctx context.Context, ownerID, bookID uint) (*model.Book, error) {
	book, err := s.books.FindOwned(ctx, ownerID, bookID)
	if err != nil {
		return nil, errs.ErrNotFoundOrForbidden
	}
	return book, nil
}

func (s *bookService) Update(ctx context.Context, ownerID, bookID uint, input BookInput) error {
	fields := map[string]interface{}{
		"title":     input.Title,
		"author":    input.Author,
		"rating":    parseRating(input.Rating),
		"review":    parseReview(input.Review),
		"read_date": parseReadDate(input.ReadDate),
		"cover_url": input.CoverURL,
	}
	affected, err := s.books.UpdateOwned(ctx, ownerID, bookID, fields)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if affected == 0 {
		return errs.ErrNotFoundOrForbidden
	}
	return nil
}

func (s *bookService) Delete(ctx context.Context, ownerID, bookID uint) error {
	affected, err := s.books.DeleteOwned(ctx, ownerID, bookID)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if affected == 0 {
		return errs.ErrNotFoundOrForbidden
	}
	return nil
}

// FetchCover asks the cover collaborator for an image URL. "" means no
// cover was found; an error means the collaborator was unreachable, and
// callers degrade to an empty cover with an inline warning.
func (s *bookService) FetchCover(ctx context.Context, title string) (string, error) {
	return s.covers.Lookup(ctx, title)
}

func parseRating(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}

func parseReview(raw string) *string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return &raw
}

func parseReadDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	return &t
}
