package service

import "github.com/Falconext/pos-web-sub003/internal/sandbox/domain"

func userFixture() domain.Account {
	return domain.Account{ID: "user-1", Username: "cashier"}
}
