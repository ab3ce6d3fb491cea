package main

import (
	"context"
	"errors"
	"time"
)

var ErrBookNotFound = errors.New("book not found")

// ValidationError names the book field which failed validation.
type ValidationError string

func (v ValidationError) Error() string {
	return string(v) + " is required"
}

// Author represents the writer of a book.
type Author struct {
	Name string `json:"name"`
}

// Book represents the content of a catalog record.
type Book struct {
	Title  string `json:"title"`
	Author Author `json:"author"`
}

// BookEntity is a stored book with its catalog identifier.
type BookEntity struct {
	ID   int  `json:"id"`
	Book Book `json:"book"`
}

// Validate ensures the book carries a title and an author name.
func (b Book) Validate() error {
	if len(b.Title) == 0 {
		return ValidationError("title")
	}
	if len(b.Author.Name) == 0 {
		return ValidationError("author.name")
	}
	return nil
}

// DefaultSeedBooks returns the dataset a fresh catalog starts with.
func DefaultSeedBooks() []Book {
	return []Book{
		{Title: "C# in depth.", Author: Author{Name: "Jon Skeet"}},
	}
}

// BookStorage defines possible operations on book entity.
type BookStorage interface {
	Add(ctx context.Context, book Book) (BookEntity, error)
	GetOne(ctx context.Context, id int) (BookEntity, error)
	GetAll(ctx context.Context) ([]BookEntity, error)
	Count(ctx context.Context) (int, error)
}

// BookEventAdded is the type of events emitted after a book insertion.
const BookEventAdded = "book.added"

// BookEvent is the journal record of a catalog mutation.
type BookEvent struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Entity     BookEntity `json:"entity"`
	OccurredAt time.Time  `json:"occurred_at"`
}
