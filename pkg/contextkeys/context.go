// Package contextkeys - ключи контекста запроса. Сейчас там живет одно:
// *gorm.DB, через который хэндлеры чата читают историю и стейты.
// Это либо общий пул, либо транзакция, которую тест (или внешний
// middleware) положил в request ctx.
package contextkeys

import (
	"context"

	"gorm.io/gorm"
)

type dbKey struct{}

// GinDBKey - ключ *gorm.DB в gin.Context (c.Set/c.Get)
const GinDBKey = "mchat.db"

// WithDB привязывает транзакцию к контексту запроса
func WithDB(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, dbKey{}, tx)
}

// DBFrom достает транзакцию из контекста; nil не считается
func DBFrom(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(dbKey{}).(*gorm.DB)
	return tx, ok && tx != nil
}
