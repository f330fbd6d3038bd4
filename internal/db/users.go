package db

import (
	"context"

	"coursehub/internal/models"
)

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	return translate(db.WithContext(ctx).Create(user).Error)
}

// UserExists reports whether username or email is already taken.
func (db *DB) UserExists(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (db *DB) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (db *DB) GetAllUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (db *DB) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}

func (db *DB) UpdateUserRole(ctx context.Context, email, role string) error {
	res := db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
