package starforge_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/starforge/starforge"
)

// ExampleDumpWarehouse demonstrates how to dump a warehouse as a document
// string.
func ExampleDumpWarehouse() {
	ctx := context.Background()

	doc, err := starforge.DumpWarehouse(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Warehouse document:")
	fmt.Println(doc)
}

// ExampleGeneratePlan demonstrates how to plan a migration against a live
// warehouse.
func ExampleGeneratePlan() {
	ctx := context.Background()

	plan, err := starforge.GeneratePlan(ctx, os.Getenv("DATABASE_URL"), "warehouse.yaml")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Migration plan:")
	fmt.Println(plan.HumanColored(false))

	sql := plan.ToSQL()
	fmt.Println("Rendered DDL:")
	fmt.Println(sql)
}

// ExamplePlanAgainstSnapshot demonstrates planning between two documents
// without a warehouse connection.
func ExamplePlanAgainstSnapshot() {
	ctx := context.Background()

	plan, err := starforge.PlanAgainstSnapshot(ctx, "warehouse.yaml", "snapshot.yaml")
	if err != nil {
		log.Fatal(err)
	}

	for _, op := range plan.Operations {
		fmt.Printf("%s %s\n", op.Kind(), op.TableName())
	}
}

// ExampleApplySpecFile demonstrates planning and applying in one call.
func ExampleApplySpecFile() {
	ctx := context.Background()

	result, err := starforge.ApplySpecFile(ctx, os.Getenv("DATABASE_URL"), "warehouse.yaml")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Applied %d statements\n", result.Executed)
}

// ExampleClient demonstrates using the Client API for more control.
func ExampleClient() {
	ctx := context.Background()

	client := starforge.NewClient(os.Getenv("DATABASE_URL"))

	plan, err := client.Plan(ctx, starforge.PlanOptions{SpecFile: "warehouse.yaml"})
	if err != nil {
		log.Fatal(err)
	}

	result, err := client.Apply(ctx, starforge.ApplyOptions{
		Plan:    plan,
		MaxRisk: starforge.RiskMedium,
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Applied %d statements\n", result.Executed)
}

// ExampleValidateFile demonstrates checking a document against the
// star-schema invariants.
func ExampleValidateFile() {
	defects, err := starforge.ValidateFile("warehouse.yaml")
	if err != nil {
		log.Fatal(err)
	}

	if len(defects) == 0 {
		fmt.Println("Document is valid")
		return
	}
	for _, d := range defects {
		fmt.Println(d)
	}
}

// ExampleImportDDL demonstrates importing existing warehouse DDL.
func ExampleImportDDL() {
	spec, err := starforge.ImportDDL(`
		CREATE TABLE dim_company (
			company_key INT PRIMARY KEY,
			company_code VARCHAR(12) NOT NULL
		);
	`)
	if err != nil {
		log.Fatal(err)
	}

	d := spec.Dimensions[0]
	fmt.Printf("%s surrogate=%s\n", d.Name, d.SurrogateKey)
	// Output: dim_company surrogate=company_key
}
