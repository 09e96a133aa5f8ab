package repository

import (
	"context"

	"github.com/tomioM/recipe-voyage-sub000/internal/model"
	"github.com/tomioM/recipe-voyage-sub000/internal/store"
)

// CreateOwner adds a person recipes can be attributed to.
func (r *Repository) CreateOwner(ctx context.Context, name, photoRef string) (model.Owner, error) {
	const op = "create_owner"
	name, err := model.RequireText("name", name)
	if err != nil {
		return model.Owner{}, withOp(op, err)
	}
	o := model.Owner{ID: r.ids.Generate(), Name: name, PhotoRef: photoRef}
	err = r.mutate(ctx, op, "", func(tx *store.Tx) error {
		return tx.InsertOwner(ctx, o)
	})
	if err != nil {
		return model.Owner{}, err
	}
	return o, nil
}

// Owners lists every owner by name.
func (r *Repository) Owners(ctx context.Context) ([]model.Owner, error) {
	owners, err := r.store.ListOwners(ctx)
	if err != nil {
		return nil, model.NewStoreFailure("list_owners", err)
	}
	return owners, nil
}
