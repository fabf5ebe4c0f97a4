package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/FreePeak/json-db-mcp-server/internal/domain"
	"github.com/FreePeak/json-db-mcp-server/pkg/tools"
)

// Tool names
const (
	ToolCreateDatabase = "create_json_doc_database"
	ToolListDatabases  = "list_json_doc_databases"
	ToolSaveDocument   = "save_json_doc_to_db"
	ToolQueryDocuments = "query_json_docs_from_db"
	ToolLoadDocument   = "load_json_doc_from_db"
	ToolDeleteDocument = "delete_json_doc_from_db"
)

// CreateDatabaseArgs are the arguments of create_json_doc_database
type CreateDatabaseArgs struct {
	DatabaseName string `json:"databaseName" jsonschema:"description=name of the document database to create,minLength=1" validate:"required"`
}

// ListDatabasesArgs are the arguments of list_json_doc_databases
type ListDatabasesArgs struct{}

// SaveDocumentArgs are the arguments of save_json_doc_to_db
type SaveDocumentArgs struct {
	Doc          map[string]interface{} `json:"doc" jsonschema:"description=JSON document to save" validate:"required,min=1"`
	DatabaseName string                 `json:"databaseName" jsonschema:"description=document database to save to,minLength=1" validate:"required"`
}

// QueryDocumentsArgs are the arguments of query_json_docs_from_db
type QueryDocumentsArgs struct {
	DatabaseName string `json:"databaseName" jsonschema:"description=name of document database to query,minLength=1" validate:"required"`
	SortField    string `json:"sortField" jsonschema:"description=field to sort documents by (descending),minLength=1" validate:"required"`
}

// LoadDocumentArgs are the arguments of load_json_doc_from_db
type LoadDocumentArgs struct {
	ID           string `json:"id" jsonschema:"description=ID of document to load,minLength=1" validate:"required"`
	DatabaseName string `json:"databaseName" jsonschema:"description=name of document database to load from,minLength=1" validate:"required"`
}

// DeleteDocumentArgs are the arguments of delete_json_doc_from_db
type DeleteDocumentArgs struct {
	ID           string `json:"id" jsonschema:"description=ID of document to delete,minLength=1" validate:"required"`
	DatabaseName string `json:"databaseName" jsonschema:"description=name of document database to delete from,minLength=1" validate:"required"`
}

// UseCaseProvider is the set of operations the tools expose
type UseCaseProvider interface {
	CreateDatabase(ctx context.Context, name string) error
	ListDatabases(ctx context.Context) ([]string, error)
	SaveDocument(ctx context.Context, dbName string, doc domain.Document) (string, error)
	QueryDocuments(ctx context.Context, dbName, sortField string) ([]domain.Document, error)
	LoadDocument(ctx context.Context, dbName, id string) (domain.Document, error)
	DeleteDocument(ctx context.Context, dbName, id string) error
}

// ToolType describes one tool: its name, description, argument shape and
// how it runs against the use case.
type ToolType interface {
	GetName() string
	GetDescription() string
	// Args returns a zero value of the argument struct, used for the schema.
	Args() interface{}
	HandleRequest(ctx context.Context, params map[string]interface{}, useCase UseCaseProvider) (interface{}, error)
}

// decodeArgs decodes and validates params, reporting failures the way
// clients expect them.
func decodeArgs(tool string, params map[string]interface{}, out interface{}) error {
	err := tools.DecodeArguments(params, out)
	if err == nil {
		return nil
	}
	reason := err.Error()
	var argErr *tools.ArgumentsError
	if errors.As(err, &argErr) {
		reason = argErr.Reason
	}
	return &tools.ToolError{
		Code:    "invalid_arguments",
		Message: fmt.Sprintf("Invalid arguments for %s: %s", tool, reason),
	}
}

// CreateDatabaseTool creates a database and registers it in the catalog
type CreateDatabaseTool struct{}

func (t *CreateDatabaseTool) GetName() string { return ToolCreateDatabase }

func (t *CreateDatabaseTool) GetDescription() string {
	return "Create a JSON document database"
}

func (t *CreateDatabaseTool) Args() interface{} { return CreateDatabaseArgs{} }

func (t *CreateDatabaseTool) HandleRequest(ctx context.Context, params map[string]interface{}, useCase UseCaseProvider) (interface{}, error) {
	var args CreateDatabaseArgs
	if err := decodeArgs(t.GetName(), params, &args); err != nil {
		return nil, err
	}
	if err := useCase.CreateDatabase(ctx, args.DatabaseName); err != nil {
		return nil, err
	}
	return FromString(fmt.Sprintf("Created JSON document database: %s", args.DatabaseName)), nil
}

// ListDatabasesTool lists registered databases, newest first
type ListDatabasesTool struct{}

func (t *ListDatabasesTool) GetName() string { return ToolListDatabases }

func (t *ListDatabasesTool) GetDescription() string {
	return "Returns the list of JSON document databases. " +
		"Use this to understand which databases are available before trying to access JSON documents."
}

func (t *ListDatabasesTool) Args() interface{} { return ListDatabasesArgs{} }

func (t *ListDatabasesTool) HandleRequest(ctx context.Context, params map[string]interface{}, useCase UseCaseProvider) (interface{}, error) {
	names, err := useCase.ListDatabases(ctx)
	if err != nil {
		return nil, err
	}
	return FromJSON(names)
}

// SaveDocumentTool stores a document
type SaveDocumentTool struct{}

func (t *SaveDocumentTool) GetName() string { return ToolSaveDocument }

func (t *SaveDocumentTool) GetDescription() string {
	return "Save a JSON document to a document database"
}

func (t *SaveDocumentTool) Args() interface{} { return SaveDocumentArgs{} }

func (t *SaveDocumentTool) HandleRequest(ctx context.Context, params map[string]interface{}, useCase UseCaseProvider) (interface{}, error) {
	var args SaveDocumentArgs
	if err := decodeArgs(t.GetName(), params, &args); err != nil {
		return nil, err
	}
	id, err := useCase.SaveDocument(ctx, args.DatabaseName, domain.Document(args.Doc))
	if err != nil {
		return nil, err
	}
	return FromString(fmt.Sprintf("Saved document with ID: %s to database: %s", id, args.DatabaseName)), nil
}

// QueryDocumentsTool returns documents sorted by a field
type QueryDocumentsTool struct{}

func (t *QueryDocumentsTool) GetName() string { return ToolQueryDocuments }

func (t *QueryDocumentsTool) GetDescription() string {
	return "Query JSON documents sorted by a field from a document database. " +
		"If no sortField is provided, use the _id field."
}

func (t *QueryDocumentsTool) Args() interface{} { return QueryDocumentsArgs{} }

func (t *QueryDocumentsTool) HandleRequest(ctx context.Context, params map[string]interface{}, useCase UseCaseProvider) (interface{}, error) {
	var args QueryDocumentsArgs
	if err := decodeArgs(t.GetName(), params, &args); err != nil {
		return nil, err
	}
	docs, err := useCase.QueryDocuments(ctx, args.DatabaseName, args.SortField)
	if err != nil {
		return nil, err
	}
	return FromJSON(docs)
}

// LoadDocumentTool fetches a document by id
type LoadDocumentTool struct{}

func (t *LoadDocumentTool) GetName() string { return ToolLoadDocument }

func (t *LoadDocumentTool) GetDescription() string {
	return "Load a JSON document by ID from a document database"
}

func (t *LoadDocumentTool) Args() interface{} { return LoadDocumentArgs{} }

func (t *LoadDocumentTool) HandleRequest(ctx context.Context, params map[string]interface{}, useCase UseCaseProvider) (interface{}, error) {
	var args LoadDocumentArgs
	if err := decodeArgs(t.GetName(), params, &args); err != nil {
		return nil, err
	}
	doc, err := useCase.LoadDocument(ctx, args.DatabaseName, args.ID)
	if err != nil {
		return nil, err
	}
	return FromJSON(doc)
}

// DeleteDocumentTool removes a document by id
type DeleteDocumentTool struct{}

func (t *DeleteDocumentTool) GetName() string { return ToolDeleteDocument }

func (t *DeleteDocumentTool) GetDescription() string {
	return "Delete a JSON document by ID from a document database"
}

func (t *DeleteDocumentTool) Args() interface{} { return DeleteDocumentArgs{} }

func (t *DeleteDocumentTool) HandleRequest(ctx context.Context, params map[string]interface{}, useCase UseCaseProvider) (interface{}, error) {
	var args DeleteDocumentArgs
	if err := decodeArgs(t.GetName(), params, &args); err != nil {
		return nil, err
	}
	if err := useCase.DeleteDocument(ctx, args.DatabaseName, args.ID); err != nil {
		return nil, err
	}
	return FromString(fmt.Sprintf("Deleted document with ID: %s", args.ID)), nil
}

// ToolTypeFactory holds the tool types in registration order
type ToolTypeFactory struct {
	toolTypes []ToolType
}

// NewToolTypeFactory creates a factory with every tool type
func NewToolTypeFactory() *ToolTypeFactory {
	return &ToolTypeFactory{
		toolTypes: []ToolType{
			&CreateDatabaseTool{},
			&ListDatabasesTool{},
			&SaveDocumentTool{},
			&QueryDocumentsTool{},
			&LoadDocumentTool{},
			&DeleteDocumentTool{},
		},
	}
}

// GetAllToolTypes returns every tool type
func (f *ToolTypeFactory) GetAllToolTypes() []ToolType {
	return f.toolTypes
}
