package vos

import (
	"github.com/google/uuid"
)

// UUID representa um identificador único universal (RFC 4122).
type UUID struct {
	Value uuid.UUID
}

// NewUUID cria um novo UUID v4 aleatório.
func NewUUID() (UUID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return UUID{}, err
	}
	return UUID{Value: id}, nil
}

// String retorna a representação em string do UUID.
func (u UUID) String() string {
	return u.Value.String()
}
