package session

import (
	"strings"

	"github.com/linhaops/linha/internal/models"
)

// Catalogs holds the backend catalogs the operation binder resolves against.
// FallbackPost is the post the terminal is physically installed at; it is
// used when the kiosk catalog carries no post for the chosen operation.
type Catalogs struct {
	KioskOps   []models.KioskOperation
	Operations []models.OperationSpec
	Models     []models.ProductModel
	Employees  []models.Employee

	FallbackPost string
}

// BoundOperation is the result of resolving an operation code against the
// catalogs: the fixed attributes sent with the entry registration.
type BoundOperation struct {
	Code           string
	Name           string
	Post           string
	Product        string
	ModelCode      string
	ModelLabel     string
	Part           string
	ProductionCode string
}

// Complete reports whether all fields required before starting are bound.
func (b *BoundOperation) Complete() bool {
	return b.Product != "" && b.ModelCode != "" && b.Part != "" &&
		b.ProductionCode != "" && b.Post != ""
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Resolve maps an operation code to its bound attributes.
//
// The kiosk catalog and the full catalog are not guaranteed to be joinable by
// a single key, so resolution falls back in three tiers: exact (operation,
// post) pair, operation alone, then the per-post candidate set. The chain has
// to stay deterministic even when the catalogs disagree.
func (c *Catalogs) Resolve(code string) (*BoundOperation, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrOperationNotFound
	}
	nc := normalize(code)

	var kioskName, kioskPost string
	for _, k := range c.KioskOps {
		if normalize(k.Code) == nc {
			kioskName = k.Name
			kioskPost = k.Post
			break
		}
	}

	post := kioskPost
	if post == "" {
		post = c.FallbackPost
	}

	var match *models.OperationSpec

	// Tier 1: (operation, post) pair, post from the kiosk list.
	if kioskPost != "" {
		np := normalize(kioskPost)
		for i := range c.Operations {
			op := &c.Operations[i]
			if normalize(op.Operation) == nc && normalize(op.Post) == np {
				match = op
				break
			}
		}
	}

	// Tier 2: operation alone.
	if match == nil {
		for i := range c.Operations {
			op := &c.Operations[i]
			if normalize(op.Operation) == nc {
				match = op
				break
			}
		}
	}

	// Tier 3: all entries for the known post; exactly one wins outright,
	// otherwise prefer a matching operation field, else take the first.
	if match == nil && post != "" {
		np := normalize(post)
		var candidates []*models.OperationSpec
		for i := range c.Operations {
			op := &c.Operations[i]
			if normalize(op.Post) == np {
				candidates = append(candidates, op)
			}
		}
		switch len(candidates) {
		case 0:
		case 1:
			match = candidates[0]
		default:
			match = candidates[0]
			for _, op := range candidates {
				if normalize(op.Operation) == nc {
					match = op
					break
				}
			}
		}
	}

	if match == nil {
		return nil, ErrOperationNotFound
	}

	bound := &BoundOperation{
		Code:      code,
		Name:      kioskName,
		Post:      kioskPost,
		Product:   match.Product,
		ModelCode: match.Model,
	}
	if bound.Post == "" {
		bound.Post = match.Post
	}
	if bound.Post == "" {
		bound.Post = c.FallbackPost
	}
	if len(match.Parts) > 0 {
		bound.Part = match.Parts[0]
	}
	if len(match.ProductionCodes) > 0 {
		bound.ProductionCode = match.ProductionCodes[0]
	}
	bound.ModelLabel = c.modelLabel(match.Model)

	return bound, nil
}

// modelLabel resolves the human description for a model code, falling back
// to the code itself when the model catalog has no entry.
func (c *Catalogs) modelLabel(code string) string {
	nc := normalize(code)
	for _, m := range c.Models {
		if normalize(m.Code) == nc {
			return m.Description
		}
	}
	return code
}

// ResolveMatricula looks up an employee's matricula by display name. The
// badge gate only carries the name forward; the binder re-derives the
// matricula from the roster for compatibility with the catalog keying.
func (c *Catalogs) ResolveMatricula(name string) string {
	nn := normalize(name)
	for _, e := range c.Employees {
		if normalize(e.Name) == nn {
			return e.Matricula
		}
	}
	return ""
}
