package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// GraphQLRequest is the body accepted by the graphql endpoint.
type GraphQLRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// resolveWith adapts an operation into a graphql field resolver.
func resolveWith(op OperationFunc) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		return op(p.Context, p.Args)
	}
}

// NewGraphQLSchema builds the catalog schema. Every root field is
// resolved through the operations table.
func NewGraphQLSchema(ops Operations) (graphql.Schema, error) {
	bookByID, err := ops.Resolve(OpBookByID)
	if err != nil {
		return graphql.Schema{}, err
	}
	books, err := ops.Resolve(OpBooks)
	if err != nil {
		return graphql.Schema{}, err
	}
	addBook, err := ops.Resolve(OpAddBook)
	if err != nil {
		return graphql.Schema{}, err
	}

	authorType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Author",
		Fields: graphql.Fields{
			"name": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})
	bookType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Book",
		Fields: graphql.Fields{
			"title":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"author": &graphql.Field{Type: graphql.NewNonNull(authorType)},
		},
	})
	bookEntityType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BookEntity",
		Fields: graphql.Fields{
			"id":   &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"book": &graphql.Field{Type: graphql.NewNonNull(bookType)},
		},
	})

	authorInputType := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "AuthorInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"name": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		},
	})
	bookInputType := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "BookInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"title":  &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"author": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(authorInputType)},
		},
	})
	addBookInputType := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "AddBookInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"book": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(bookInputType)},
		},
	})
	addBookPayloadType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AddBookPayload",
		Fields: graphql.Fields{
			"bookEntity": &graphql.Field{Type: bookEntityType},
		},
	})

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			OpBookByID: &graphql.Field{
				Type: bookEntityType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: resolveWith(bookByID),
			},
			OpBooks: &graphql.Field{
				Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(bookEntityType))),
				Resolve: resolveWith(books),
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			OpAddBook: &graphql.Field{
				Type: addBookPayloadType,
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(addBookInputType)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					input, err := objectArg(p.Args, "input")
					if err != nil {
						return nil, err
					}
					entity, err := addBook(p.Context, input)
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{"bookEntity": entity}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}

// decodeGraphQLRequest reads the query from the url on GET and from the json body otherwise.
func decodeGraphQLRequest(r *http.Request) (GraphQLRequest, error) {
	var req GraphQLRequest
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if vars := q.Get("variables"); vars != "" {
			if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
				return req, err
			}
		}
	} else {
		if r.Body == nil {
			return req, errors.New("invalid graphql request body")
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, err
		}
	}
	if req.Query == "" {
		return req, errors.New("query is required")
	}
	return req, nil
}

// isMutationRequest reports whether the operation selected by the request is a
// mutation. An unparsable document is reported as false and left to graphql.Do.
func isMutationRequest(req GraphQLRequest) bool {
	doc, err := parser.Parse(parser.ParseParams{Source: req.Query})
	if err != nil {
		return false
	}
	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok || op.Operation != ast.OperationTypeMutation {
			continue
		}
		if req.OperationName == "" || (op.Name != nil && op.Name.Value == req.OperationName) {
			return true
		}
	}
	return false
}

// GraphQL executes a graphql document against the catalog schema. Execution
// errors are part of the graphql result and answered with 200.
func (api *APIHandler) GraphQL(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	logger := api.GetLoggerFromContext(r.Context())
	req, err := decodeGraphQLRequest(r)
	if err != nil {
		logger.Error("failed to decode graphql request", zap.Error(err))
		errResp := NewAPIError(requestID, http.StatusBadRequest, "failed to decode the graphql request", err.Error())
		if err = WriteErrorResponse(r.Context(), w, errResp); err != nil {
			logger.Error("failed to send error response", zap.Error(err))
		}
		return
	}

	// Mutations change the catalog so they are only accepted over POST.
	if r.Method == http.MethodGet && isMutationRequest(req) {
		logger.Warn("graphql mutation rejected over GET", zap.String(LogKeyGraphQLName, req.OperationName))
		w.Header().Set("Allow", http.MethodPost)
		errResp := NewAPIError(requestID, http.StatusMethodNotAllowed, "graphql mutations are only allowed over POST", EmptyData)
		if err = WriteErrorResponse(r.Context(), w, errResp); err != nil {
			logger.Error("failed to send error response", zap.Error(err))
		}
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         api.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        r.Context(),
	})
	if result.HasErrors() {
		logger.Warn("graphql request completed with errors",
			zap.String(LogKeyGraphQLName, req.OperationName),
			zap.Int("graphql.errors", len(result.Errors)),
		)
	}

	if err := r.Context().Err(); err != nil {
		logger.Error("failed to send graphql response", zap.Error(err))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.Error("failed to send graphql response", zap.Error(err))
	}
}
