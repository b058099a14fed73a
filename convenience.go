package starforge

import (
	"context"

	"github.com/starforge/starforge/internal/ddl"
	"github.com/starforge/starforge/internal/schema"
)

// DumpWarehouse is a convenience function to dump a warehouse as a single
// document string.
func DumpWarehouse(ctx context.Context, databaseURL string) (string, error) {
	return NewClient(databaseURL).Dump(ctx, DumpOptions{})
}

// DumpWarehouseToFile is a convenience function to dump a warehouse to one
// file.
func DumpWarehouseToFile(ctx context.Context, databaseURL, path string) error {
	_, err := NewClient(databaseURL).Dump(ctx, DumpOptions{File: path})
	return err
}

// GeneratePlan is a convenience function to plan a migration from the live
// warehouse state to the target document.
func GeneratePlan(ctx context.Context, databaseURL, specFile string) (*Plan, error) {
	return NewClient(databaseURL).Plan(ctx, PlanOptions{SpecFile: specFile})
}

// PlanAgainstSnapshot is a convenience function to plan a migration
// between two documents without touching a warehouse.
func PlanAgainstSnapshot(ctx context.Context, specFile, snapshotFile string) (*Plan, error) {
	return NewClient("").Plan(ctx, PlanOptions{SpecFile: specFile, SnapshotFile: snapshotFile})
}

// ApplySpecFile is a convenience function to plan and apply a target
// document in one operation.
func ApplySpecFile(ctx context.Context, databaseURL, specFile string) (*ApplyResult, error) {
	return NewClient(databaseURL).Apply(ctx, ApplyOptions{SpecFile: specFile})
}

// ApplyPlan is a convenience function to apply a pre-generated plan.
func ApplyPlan(ctx context.Context, databaseURL string, migrationPlan *Plan) (*ApplyResult, error) {
	return NewClient(databaseURL).Apply(ctx, ApplyOptions{Plan: migrationPlan})
}

// ValidateFile loads a document and returns its defects. An empty slice
// means the document honors every invariant.
func ValidateFile(path string) ([]string, error) {
	spec, err := schema.Load(path)
	if err != nil {
		return nil, err
	}
	return schema.Validate(spec), nil
}

// ImportDDL parses warehouse DDL into a SchemaSpec.
func ImportDDL(sqlText string) (*SchemaSpec, error) {
	return ddl.Import(sqlText)
}
