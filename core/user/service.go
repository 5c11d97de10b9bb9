package user

import (
	"context"
	"errors"
	"time"

	"github.com/edufi/backend/core"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryUsers(ctx context.Context, paging core.Paging) ([]User, error)
		GetUserByID(ctx context.Context, id int) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		UpdateUser(ctx context.Context, usr User, isActive *bool) (User, error)
		DeleteUserByID(ctx context.Context, id int) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CheckEmailUniqueness reports a field ValidationError if another user
// already owns the email.
func (svc *Service) CheckEmailUniqueness(email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, exclUsers...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Email:     nu.Email,
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Role:      nu.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if usr.Role == "" {
		usr.Role = RoleStudent
	}
	if nu.IsActive != nil {
		usr.IsActive = *nu.IsActive
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, paging core.Paging) ([]User, error) {
	paging.Clean()
	return svc.repo.QueryUsers(ctx, paging)
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// Update applies uu to the user identified by id. uu must have been
// validated against the original user so unset fields hold current values.
func (svc *Service) Update(ctx context.Context, id int, uu UpdateUser) (User, error) {
	usr := User{
		ID:        id,
		Email:     uu.Email,
		FirstName: uu.FirstName,
		LastName:  uu.LastName,
		Role:      uu.Role,
		UpdatedAt: time.Now().UTC(),
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	return svc.repo.UpdateUser(ctx, usr, uu.IsActive)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteUserByID(ctx, id)
}

// ChangePassword verifies the current password before setting the new one.
func (svc *Service) ChangePassword(ctx context.Context, usr User, current, newPwd string) (User, error) {
	if err := usr.CheckPassword(current); err != nil {
		return User{}, core.NewValidationError(
			errors.New("incorrect current password"),
			core.FieldError{Field: "current_password", Error: "incorrect current password"},
		)
	}
	if err := ValidatePassword(newPwd, usr.FirstName, usr.LastName, usr.Email); err != nil {
		return User{}, err
	}
	upd := User{
		ID:        usr.ID,
		Email:     usr.Email,
		FirstName: usr.FirstName,
		LastName:  usr.LastName,
		Role:      usr.Role,
		UpdatedAt: time.Now().UTC(),
	}
	if err := upd.SetPassword(newPwd); err != nil {
		return User{}, err
	}
	return svc.repo.UpdateUser(ctx, upd, nil)
}
