package main

import (
	"context"
	"errors"
	"fmt"
)

// Names of the catalog operations exposed to the api layer.
const (
	OpBookByID = "bookById"
	OpBooks    = "books"
	OpAddBook  = "addBook"
)

var ErrUnknownOperation = errors.New("unknown operation")

// ArgumentError reports an operation argument which could not be decoded.
type ArgumentError struct {
	Name   string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Name, e.Reason)
}

// OperationFunc executes one catalog operation with loosely typed arguments
// as produced by json or graphql decoding.
type OperationFunc func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Operations maps each operation name to its handler.
type Operations map[string]OperationFunc

// NewOperations builds the operations table on top of the catalog service.
func NewOperations(cs CatalogServiceProvider) Operations {
	return Operations{
		OpBookByID: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			id, err := intArg(args, "id")
			if err != nil {
				return nil, err
			}
			entity, err := cs.QueryBookByID(ctx, id)
			if err != nil || entity == nil {
				return nil, err
			}
			return *entity, nil
		},
		OpBooks: func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
			return cs.QueryAllBooks(ctx)
		},
		OpAddBook: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			book, err := bookArg(args, "book")
			if err != nil {
				return nil, err
			}
			return cs.MutateAddBook(ctx, book)
		},
	}
}

// Resolve returns the handler registered under name.
func (ops Operations) Resolve(name string) (OperationFunc, error) {
	op, ok := ops[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, name)
	}
	return op, nil
}

func intArg(args map[string]interface{}, name string) (int, error) {
	switch v := args[name].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, &ArgumentError{name, "not an integer"}
		}
		return int(v), nil
	case nil:
		return 0, &ArgumentError{name, "missing"}
	default:
		return 0, &ArgumentError{name, fmt.Sprintf("unexpected type %T", v)}
	}
}

func stringArg(args map[string]interface{}, name string) (string, error) {
	switch v := args[name].(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		return "", &ArgumentError{name, fmt.Sprintf("unexpected type %T", v)}
	}
}

func objectArg(args map[string]interface{}, name string) (map[string]interface{}, error) {
	switch v := args[name].(type) {
	case map[string]interface{}:
		return v, nil
	case nil:
		return nil, &ArgumentError{name, "missing"}
	default:
		return nil, &ArgumentError{name, fmt.Sprintf("unexpected type %T", v)}
	}
}

// bookArg decodes {title, author: {name}}. Empty values are left
// to the book validation so they surface as ValidationError.
func bookArg(args map[string]interface{}, name string) (Book, error) {
	var book Book
	obj, err := objectArg(args, name)
	if err != nil {
		return book, err
	}
	if book.Title, err = stringArg(obj, "title"); err != nil {
		return book, err
	}
	author, err := objectArg(obj, "author")
	if err != nil {
		return book, err
	}
	book.Author.Name, err = stringArg(author, "name")
	return book, err
}
