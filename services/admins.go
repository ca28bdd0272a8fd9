package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/boardhub/models"
)

// PromoteAdmins sets role admin on existing users whose username is listed. Unknown names are skipped.
func PromoteAdmins(ctx context.Context, db *gorm.DB, usernames []string) (int64, error) {
	names := make([]string, 0, len(usernames))
	for _, u := range usernames {
		if u = strings.TrimSpace(u); u != "" {
			names = append(names, u)
		}
	}
	if len(names) == 0 {
		return 0, nil
	}
	r := db.WithContext(ctx).Model(&models.User{}).
		Where("username IN ? AND role <> ?", names, models.RoleAdmin).
		Update("role", models.RoleAdmin)
	return r.RowsAffected, r.Error
}
