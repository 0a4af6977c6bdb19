package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"climatrack/internal/auth"
	"climatrack/internal/errors"
	"climatrack/internal/model"
	"climatrack/internal/repository"
)

// SelfRegisteredRole is the role of accounts created through Register.
const SelfRegisteredRole = model.RoleViewer

var (
	errSelfDelete = errors.Validation("you cannot delete your own account")
	errLastAdmin  = errors.Validation("at least one ADMIN user must remain")
	errEmailTaken = errors.Conflict("email already registered")
)

// CreateUserInput holds the fields of a new user.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     model.Role
}

// UpdateUserInput holds the fields to change; nil fields stay as they are.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Password *string
}

// UserService manages accounts. Every operation except the profile ones
// requires an ADMIN actor.
type UserService interface {
	List(ctx context.Context, actor Actor, search string, page, limit int) (*Page[model.User], error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*model.User, error)
	Create(ctx context.Context, actor Actor, in CreateUserInput) (*model.User, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, in UpdateUserInput) (*model.User, error)
	ChangeRole(ctx context.Context, actor Actor, id uuid.UUID, role model.Role) (*model.User, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error

	// Register is the anonymous sign-up. The account always gets
	// SelfRegisteredRole whatever the caller asks for.
	Register(ctx context.Context, in CreateUserInput, ip string) (*model.User, error)

	Profile(ctx context.Context, actor Actor) (*model.User, error)
	ChangePassword(ctx context.Context, actor Actor, current, next string) error
}

type userService struct {
	tx       repository.Transactor
	users    repository.UserRepository
	policy   *PasswordPolicy
	hasher   auth.PasswordHasher
	activity ActivityService
	log      zerolog.Logger
}

// NewUserService creates a new user service.
func NewUserService(
	tx repository.Transactor,
	users repository.UserRepository,
	policy *PasswordPolicy,
	hasher auth.PasswordHasher,
	activity ActivityService,
	log zerolog.Logger,
) UserService {
	return &userService{
		tx:       tx,
		users:    users,
		policy:   policy,
		hasher:   hasher,
		activity: activity,
		log:      log,
	}
}

func (s *userService) List(ctx context.Context, actor Actor, search string, page, limit int) (*Page[model.User], error) {
	if err := authorize(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	page, limit, offset := normalizePage(page, limit)
	users, total, err := s.users.List(ctx, repository.UserFilter{Search: search, Offset: offset, Limit: limit})
	if err != nil {
		return nil, errors.Unavailable(err)
	}
	return newPage(users, total, page, limit), nil
}

func (s *userService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*model.User, error) {
	if err := authorize(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	return user, nil
}

func (s *userService) Create(ctx context.Context, actor Actor, in CreateUserInput) (*model.User, error) {
	if err := authorize(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	user, err := s.insert(ctx, in)
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, ActivityEntry{
		UserID:  actor.UserID,
		Action:  model.ActionUserCreated,
		Details: fmt.Sprintf("user %s created with role %s", user.ID, user.Role),
		IP:      actor.IP,
	})
	return user, nil
}

func (s *userService) Register(ctx context.Context, in CreateUserInput, ip string) (*model.User, error) {
	in.Role = SelfRegisteredRole
	user, err := s.insert(ctx, in)
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, ActivityEntry{
		UserID:  user.ID,
		Action:  model.ActionUserRegistered,
		Details: fmt.Sprintf("user %s registered with role %s", user.ID, user.Role),
		IP:      ip,
	})
	s.log.Info().Str("user_id", user.ID.String()).Msg("user registered")
	return user, nil
}

// insert validates in against the password policy and stores the user.
func (s *userService) insert(ctx context.Context, in CreateUserInput) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Email == "" {
		return nil, errors.Validation("name and email are required")
	}
	if !in.Role.Valid() {
		return nil, invalidRole(in.Role)
	}
	if err := s.policy.Check(ctx, in.Password); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{Name: in.Name, Email: in.Email, PasswordHash: hash, Role: in.Role}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, userWriteError(err)
	}
	return user, nil
}

func (s *userService) Update(ctx context.Context, actor Actor, id uuid.UUID, in UpdateUserInput) (*model.User, error) {
	if err := authorize(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	if _, err := s.users.FindByID(ctx, id); err != nil {
		return nil, storeError(err, "user not found")
	}

	cols := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, errors.Validation("name cannot be empty")
		}
		cols["name"] = name
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			return nil, errors.Validation("email cannot be empty")
		}
		cols["email"] = email
	}
	if in.Password != nil {
		if err := s.policy.Check(ctx, *in.Password); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, err
		}
		cols["password_hash"] = hash
	}

	// Only the requested columns are written; a reset or role change that
	// lands after the read above survives.
	if err := s.users.UpdateColumns(ctx, id, cols); err != nil {
		return nil, userWriteError(err)
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "user not found")
	}

	s.activity.Record(ctx, ActivityEntry{
		UserID:  actor.UserID,
		Action:  model.ActionUserUpdated,
		Details: fmt.Sprintf("user %s updated", user.ID),
		IP:      actor.IP,
	})
	return user, nil
}

// ChangeRole refuses to demote the last ADMIN.
func (s *userService) ChangeRole(ctx context.Context, actor Actor, id uuid.UUID, role model.Role) (*model.User, error) {
	if err := authorize(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, invalidRole(role)
	}

	var updated *model.User
	var previous model.Role
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx *repository.Store) error {
		admins, err := tx.Users.LockByRole(ctx, model.RoleAdmin)
		if err != nil {
			return errors.Unavailable(err)
		}
		user, err := tx.Users.FindByID(ctx, id)
		if err != nil {
			return storeError(err, "user not found")
		}
		previous = user.Role
		if user.Role == model.RoleAdmin && role != model.RoleAdmin && len(admins) <= 1 {
			return errLastAdmin
		}
		if err := tx.Users.UpdateRole(ctx, id, role); err != nil {
			return errors.Unavailable(err)
		}
		user.Role = role
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, ActivityEntry{
		UserID:  actor.UserID,
		Action:  model.ActionUserRoleChanged,
		Details: fmt.Sprintf("user %s role %s -> %s", id, previous, role),
		IP:      actor.IP,
	})
	return updated, nil
}

// Delete refuses to remove the caller or the last ADMIN. The ADMIN rows stay
// locked until commit so two concurrent deletions cannot both pass the check.
func (s *userService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := authorize(actor, model.RoleAdmin); err != nil {
		return err
	}
	if id == actor.UserID {
		return errSelfDelete
	}

	var email string
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx *repository.Store) error {
		admins, err := tx.Users.LockByRole(ctx, model.RoleAdmin)
		if err != nil {
			return errors.Unavailable(err)
		}
		user, err := tx.Users.FindByID(ctx, id)
		if err != nil {
			return storeError(err, "user not found")
		}
		if user.Role == model.RoleAdmin && len(admins) <= 1 {
			return errLastAdmin
		}
		if _, err := tx.ResetTokens.DeleteByUser(ctx, id); err != nil {
			return errors.Unavailable(err)
		}
		if err := tx.Users.Delete(ctx, id); err != nil {
			return storeError(err, "user not found")
		}
		email = user.Email
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("user_id", id.String()).Str("by", actor.UserID.String()).Msg("user deleted")
	s.activity.Record(ctx, ActivityEntry{
		UserID:  actor.UserID,
		Action:  model.ActionUserDeleted,
		Details: fmt.Sprintf("user %s (%s) deleted", id, email),
		IP:      actor.IP,
	})
	return nil
}

func (s *userService) Profile(ctx context.Context, actor Actor) (*model.User, error) {
	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	return user, nil
}

// ChangePassword requires the current password of the caller.
func (s *userService) ChangePassword(ctx context.Context, actor Actor, current, next string) error {
	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return storeError(err, "user not found")
	}
	if err := s.hasher.Compare(user.PasswordHash, current); err != nil {
		return errors.ErrInvalidCredentials
	}
	if err := s.policy.Check(ctx, next); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return errors.Unavailable(err)
	}

	s.activity.Record(ctx, ActivityEntry{UserID: user.ID, Action: model.ActionPasswordChanged, IP: actor.IP})
	return nil
}

func invalidRole(r model.Role) error {
	names := make([]string, len(model.Roles))
	for i, known := range model.Roles {
		names[i] = string(known)
	}
	return errors.Validation(fmt.Sprintf("invalid role %q, expected one of %s", r, strings.Join(names, ", ")))
}

func userWriteError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errEmailTaken
	}
	return storeError(err, "user not found")
}
