package session

import (
	"testing"

	"github.com/linhaops/linha/internal/models"
)

func testCatalogs() *Catalogs {
	return &Catalogs{
		KioskOps: []models.KioskOperation{
			{Code: "OP-SOLDA", Name: "Solda", Post: "P3"},
			{Code: "OP-MONTA", Name: "Montagem", Post: ""},
		},
		Operations: []models.OperationSpec{
			{Operation: "OP-SOLDA", Product: "Placa X", Model: "MDX", Post: "P3",
				Parts: []string{"PC1", "PC2"}, ProductionCodes: []string{"COD1", "COD2"}},
			{Operation: "OP-SOLDA", Product: "Placa Y", Model: "MDY", Post: "P9",
				Parts: []string{"PC9"}, ProductionCodes: []string{"COD9"}},
			{Operation: "OP-INSP", Product: "Placa Z", Model: "MDZ", Post: "P1",
				Parts: []string{"PCZ"}, ProductionCodes: []string{"CODZ"}},
		},
		Models: []models.ProductModel{
			{Code: "MDX", Description: "Modelo X"},
			{Code: "MDZ", Description: "Modelo Z"},
		},
		Employees: []models.Employee{
			{Matricula: "M1", Name: "Ana"},
		},
	}
}

func TestResolvePairMatch(t *testing.T) {
	c := testCatalogs()

	b, err := c.Resolve("OP-SOLDA")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	// The kiosk post disambiguates the two OP-SOLDA catalog entries.
	if b.Post != "P3" {
		t.Errorf("Expected post P3, got %s", b.Post)
	}
	if b.Product != "Placa X" || b.ModelCode != "MDX" {
		t.Errorf("Wrong catalog entry bound: %+v", b)
	}
	if b.Part != "PC1" || b.ProductionCode != "COD1" {
		t.Errorf("Expected first candidates, got part=%s code=%s", b.Part, b.ProductionCode)
	}
	if b.ModelLabel != "Modelo X" {
		t.Errorf("Expected model label from catalog, got %s", b.ModelLabel)
	}
}

func TestResolveNormalization(t *testing.T) {
	c := testCatalogs()

	b, err := c.Resolve("  op-solda ")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if b.Post != "P3" {
		t.Errorf("Expected post P3, got %s", b.Post)
	}
}

func TestResolveOperationOnly(t *testing.T) {
	c := testCatalogs()
	// Kiosk list carries no post for OP-INSP; the full catalog match alone
	// resolves the post.
	b, err := c.Resolve("OP-INSP")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if b.Post != "P1" {
		t.Errorf("Expected post P1 from catalog entry, got %s", b.Post)
	}
	if b.ModelLabel != "Modelo Z" {
		t.Errorf("Expected Modelo Z, got %s", b.ModelLabel)
	}
}

func TestResolveAmbiguousPerPost(t *testing.T) {
	c := &Catalogs{
		KioskOps: []models.KioskOperation{}, // no post known for OP-X
		Operations: []models.OperationSpec{
			{Operation: "OP-A", Product: "Prod A", Model: "MA", Post: "P1",
				Parts: []string{"PA"}, ProductionCodes: []string{"CA"}},
			{Operation: "OP-B", Product: "Prod B", Model: "MB", Post: "P1",
				Parts: []string{"PB"}, ProductionCodes: []string{"CB"}},
			{Operation: "OP-C", Product: "Prod C", Model: "MC", Post: "P1",
				Parts: []string{"PC"}, ProductionCodes: []string{"CC"}},
		},
		FallbackPost: "P1",
	}

	// None of the three entries matches OP-X by name; the binder must still
	// deterministically pick the first rather than fail.
	b, err := c.Resolve("OP-X")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if b.Product != "Prod A" || b.ModelCode != "MA" {
		t.Errorf("Expected first entry after filtering, got %+v", b)
	}
	if b.Post != "P1" {
		t.Errorf("Expected post P1, got %s", b.Post)
	}
}

func TestResolveSingleCandidateForPost(t *testing.T) {
	c := &Catalogs{
		Operations: []models.OperationSpec{
			{Operation: "OP-A", Product: "Prod A", Model: "MA", Post: "P7",
				Parts: []string{"PA"}, ProductionCodes: []string{"CA"}},
		},
		FallbackPost: "P7",
	}

	b, err := c.Resolve("OP-UNKNOWN")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if b.Product != "Prod A" {
		t.Errorf("Expected the only candidate, got %+v", b)
	}
}

func TestResolveNotFound(t *testing.T) {
	c := testCatalogs()

	if _, err := c.Resolve("OP-NOPE"); err != ErrOperationNotFound {
		t.Errorf("Expected ErrOperationNotFound, got %v", err)
	}
	if _, err := c.Resolve(""); err != ErrOperationNotFound {
		t.Errorf("Expected ErrOperationNotFound for empty code, got %v", err)
	}
}

func TestModelLabelFallsBackToCode(t *testing.T) {
	c := testCatalogs()

	b, err := c.Resolve("OP-MONTA")
	if err == nil {
		// OP-MONTA has no catalog entry and no post; resolution must fail.
		t.Fatalf("Expected resolution failure, got %+v", b)
	}

	c.FallbackPost = "P9"
	b, err = c.Resolve("OP-MONTA")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	// MDY is not in the model catalog.
	if b.ModelLabel != "MDY" {
		t.Errorf("Expected code as label, got %s", b.ModelLabel)
	}
}

func TestBoundOperationComplete(t *testing.T) {
	b := &BoundOperation{
		Post: "P1", Product: "Prod", ModelCode: "M", Part: "PC", ProductionCode: "C",
	}
	if !b.Complete() {
		t.Error("Expected complete binding")
	}

	b.Part = ""
	if b.Complete() {
		t.Error("Expected incomplete binding without a part")
	}
}

func TestResolveMatricula(t *testing.T) {
	c := testCatalogs()

	if got := c.ResolveMatricula(" ANA "); got != "M1" {
		t.Errorf("Expected M1, got %q", got)
	}
	if got := c.ResolveMatricula("Carlos"); got != "" {
		t.Errorf("Expected empty matricula, got %q", got)
	}
}
