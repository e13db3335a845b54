package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"loralinka/internal/auth"
	"loralinka/internal/logger"
	"loralinka/internal/models"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

type UserService struct {
	db   *bun.DB
	logr *logger.Logger
}

func NewUserService(db *bun.DB, logr *logger.Logger) *UserService {
	return &UserService{db: db, logr: logr}
}

// Create registers a user with their emergency contacts and medical conditions in one transaction.
func (s *UserService) Create(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		Name:         req.Name,
		Phone:        req.Phone,
		Birthday:     req.Birthday,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := ensurePhoneFree(ctx, tx, req.Phone, 0); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(u).Exec(ctx); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		if err := insertContacts(ctx, tx, u.ID, req.EmergencyContacts); err != nil {
			return err
		}
		return linkConditions(ctx, tx, u.ID, req.MedicalConditionIDs)
	})
	if err != nil {
		return nil, err
	}

	s.logr.Info("user created",
		zap.Int64("user_id", u.ID),
		zap.Int("contacts", len(req.EmergencyContacts)),
		zap.Int("conditions", len(req.MedicalConditionIDs)))
	return s.Get(ctx, u.ID)
}

// Login checks a phone and password. An unknown phone and a wrong password both
// return ErrInvalidCredentials after the same amount of bcrypt work.
func (s *UserService) Login(ctx context.Context, phone, password string) (*models.User, error) {
	var u models.User
	err := s.db.NewSelect().Model(&u).Where("u.phone = ?", phone).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = auth.BurnCompare(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	needsRehash, err := auth.ComparePassword(u.PasswordHash, password)
	if err != nil {
		s.logr.Warn("login failed", zap.Int64("user_id", u.ID))
		return nil, ErrInvalidCredentials
	}

	if needsRehash {
		if hash, err := auth.HashPassword(password); err == nil {
			u.PasswordHash = hash
			if _, err := s.db.NewUpdate().Model(&u).Column("password").WherePK().Exec(ctx); err != nil {
				s.logr.Warn("password rehash failed", zap.Int64("user_id", u.ID), zap.Error(err))
			} else {
				s.logr.Info("legacy password upgraded", zap.Int64("user_id", u.ID))
			}
		}
	}

	return s.Get(ctx, u.ID)
}

// Get returns the user with contacts and conditions attached.
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	u := new(models.User)
	err := s.db.NewSelect().
		Model(u).
		Relation("EmergencyContacts", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("ec.contact_id ASC")
		}).
		Relation("Conditions").
		Where("u.user_id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, noRows(err, "user", id)
	}
	normalizeUser(u)
	return u, nil
}

// List returns users by id with offset pagination.
func (s *UserService) List(ctx context.Context, skip, limit int) ([]models.User, error) {
	users := make([]models.User, 0)
	err := s.db.NewSelect().
		Model(&users).
		Relation("EmergencyContacts", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("ec.contact_id ASC")
		}).
		Relation("Conditions").
		OrderExpr("u.user_id ASC").
		Offset(skip).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		normalizeUser(&users[i])
	}
	return users, nil
}

// Update applies a partial update. A new password is hashed before it is stored.
func (s *UserService) Update(ctx context.Context, id int64, req models.UpdateUserRequest) (*models.User, error) {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		u := new(models.User)
		if err := tx.NewSelect().Model(u).Where("u.user_id = ?", id).Scan(ctx); err != nil {
			return noRows(err, "user", id)
		}

		var columns []string
		if req.Name != nil {
			u.Name = *req.Name
			columns = append(columns, "name")
		}
		if req.Phone != nil && *req.Phone != u.Phone {
			if err := ensurePhoneFree(ctx, tx, *req.Phone, id); err != nil {
				return err
			}
			u.Phone = *req.Phone
			columns = append(columns, "phone")
		}
		if req.Birthday != nil {
			u.Birthday = req.Birthday
			columns = append(columns, "birthday")
		}
		if req.Password != nil {
			hash, err := auth.HashPassword(*req.Password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			u.PasswordHash = hash
			columns = append(columns, "password")
		}
		if len(columns) == 0 {
			return nil
		}

		_, err := tx.NewUpdate().Model(u).Column(columns...).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a user with their contacts and condition links. Emergencies they
// reported are kept and lose the reporter reference.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*models.User)(nil)).Where("user_id = ?", id).Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return notFound("user", id)
		}

		if _, err := tx.NewDelete().Model((*models.EmergencyContact)(nil)).Where("user_id = ?", id).Exec(ctx); err != nil {
			return fmt.Errorf("delete contacts: %w", err)
		}
		if _, err := tx.NewDelete().Model((*models.UserCondition)(nil)).Where("user_id = ?", id).Exec(ctx); err != nil {
			return fmt.Errorf("delete conditions: %w", err)
		}
		if _, err := tx.NewUpdate().
			Model((*models.Emergency)(nil)).
			Set("user_id = NULL").
			Where("user_id = ?", id).
			Exec(ctx); err != nil {
			return fmt.Errorf("detach emergencies: %w", err)
		}
		_, err = tx.NewDelete().Model((*models.User)(nil)).Where("user_id = ?", id).Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}

	s.logr.Info("user deleted", zap.Int64("user_id", id))
	return nil
}

func ensurePhoneFree(ctx context.Context, tx bun.Tx, phone string, exceptID int64) error {
	taken, err := tx.NewSelect().
		Model((*models.User)(nil)).
		Where("phone = ?", phone).
		Where("user_id <> ?", exceptID).
		Exists(ctx)
	if err != nil {
		return err
	}
	if taken {
		return ErrPhoneTaken
	}
	return nil
}

func insertContacts(ctx context.Context, tx bun.Tx, userID int64, inputs []models.EmergencyContactInput) error {
	if len(inputs) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(inputs))
	contacts := make([]*models.EmergencyContact, 0, len(inputs))
	for _, in := range inputs {
		if in.ContactPhone != nil {
			if seen[*in.ContactPhone] {
				return fmt.Errorf("%s: %w", *in.ContactPhone, ErrDuplicateContact)
			}
			seen[*in.ContactPhone] = true
		}
		if in.KinID != nil {
			exists, err := tx.NewSelect().
				Model((*models.KinCatalog)(nil)).
				Where("kin_id = ?", *in.KinID).
				Exists(ctx)
			if err != nil {
				return err
			}
			if !exists {
				return notFound("kin catalog item", *in.KinID)
			}
		}
		contacts = append(contacts, &models.EmergencyContact{
			UserID:       userID,
			ContactPhone: in.ContactPhone,
			KinID:        in.KinID,
			ContactName:  in.ContactName,
		})
	}

	if _, err := tx.NewInsert().Model(&contacts).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateContact
		}
		return fmt.Errorf("insert contacts: %w", err)
	}
	return nil
}

func linkConditions(ctx context.Context, tx bun.Tx, userID int64, conditionIDs []int64) error {
	if len(conditionIDs) == 0 {
		return nil
	}

	links := make([]*models.UserCondition, 0, len(conditionIDs))
	seen := make(map[int64]bool, len(conditionIDs))
	for _, id := range conditionIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		exists, err := tx.NewSelect().
			Model((*models.MedicalCondition)(nil)).
			Where("medical_condition_id = ?", id).
			Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return notFound("medical condition", id)
		}
		links = append(links, &models.UserCondition{UserID: userID, MedicalConditionID: id})
	}

	if _, err := tx.NewInsert().Model(&links).Exec(ctx); err != nil {
		return fmt.Errorf("link conditions: %w", err)
	}
	return nil
}

// normalizeUser swaps nil relation slices for empty ones so they encode as [].
func normalizeUser(u *models.User) {
	if u.EmergencyContacts == nil {
		u.EmergencyContacts = []*models.EmergencyContact{}
	}
	if u.Conditions == nil {
		u.Conditions = []*models.MedicalCondition{}
	}
}
