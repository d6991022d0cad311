package backend

import (
	"fmt"

	"github.com/linhaops/linha/internal/models"
	"github.com/linhaops/linha/internal/store"
)

// Seed loads a demo catalog and roster into an empty store. It is a no-op
// when employees already exist.
func Seed(s *store.Store) error {
	existing, err := s.ListEmployees()
	if err != nil {
		return fmt.Errorf("check roster: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	employees := []struct{ matricula, nome, badge string }{
		{"M1", "Ana", "RF001"},
		{"M2", "Bruno", "RF002"},
		{"M3", "Carla", "RF003"},
	}
	for _, e := range employees {
		if err := s.AddEmployee(e.matricula, e.nome, e.badge); err != nil {
			return err
		}
	}

	kioskOps := []models.KioskOperation{
		{Code: "OP-SOLDA", Name: "Solda", Post: "P3"},
		{Code: "OP-MONTA", Name: "Montagem", Post: "P1"},
		{Code: "OP-INSP", Name: "Inspecao", Post: ""},
	}
	for _, op := range kioskOps {
		if err := s.AddKioskOperation(op); err != nil {
			return err
		}
	}

	operations := []models.OperationSpec{
		{Operation: "OP-SOLDA", Product: "Placa X", Model: "MDX", Post: "P3",
			Parts: []string{"PC1", "PC2"}, ProductionCodes: []string{"COD1", "COD2"}},
		{Operation: "OP-MONTA", Product: "Conjunto A", Model: "MDA", Post: "P1",
			Parts: []string{"PA1"}, ProductionCodes: []string{"CODA"}},
		{Operation: "OP-INSP", Product: "Placa X", Model: "MDX", Post: "P5",
			Parts: []string{"PC1"}, ProductionCodes: []string{"COD1"}},
	}
	for _, op := range operations {
		if err := s.AddOperation(op); err != nil {
			return err
		}
	}

	pms := []models.ProductModel{
		{Code: "MDX", Description: "Modelo X", SubProducts: []string{"SUB1", "SUB2"}},
		{Code: "MDA", Description: "Modelo A", SubProducts: []string{"SUB3"}},
	}
	for _, pm := range pms {
		if err := s.AddModel(pm); err != nil {
			return err
		}
	}

	return nil
}
