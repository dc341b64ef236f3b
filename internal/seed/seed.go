package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	companydomain "github.com/clinicore/panelbilling/internal/company/domain"
	"gorm.io/gorm"
)

const defaultCompanyName = "Default Panel"

// EnsureDefaultCompany seeds a company with the given code so a fresh
// deployment can start accruing without an admin step. A blank code skips
// seeding.
func EnsureDefaultCompany(db *gorm.DB, node *snowflake.Node, code string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing companydomain.Company
		err := tx.WithContext(ctx).
			Where("code = ?", code).
			First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		company := companydomain.Company{
			ID:        node.Generate(),
			Code:      code,
			Name:      defaultCompanyName,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.WithContext(ctx).Create(&company).Error
	})
}
