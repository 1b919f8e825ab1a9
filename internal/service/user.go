package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// UserService manages user accounts and troop rosters.
type UserService struct {
	repo   UserStore
	troops TroopStore
	now    func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(repo UserStore, troops TroopStore) *UserService {
	return &UserService{repo: repo, troops: troops, now: time.Now}
}

// List returns one page of users.
func (s *UserService) List(ctx context.Context, page domain.PageRequest) (domain.Page[*domain.User], error) {
	page = page.Normalize()
	users, total, err := s.repo.List(ctx, page)
	if err != nil {
		return domain.Page[*domain.User]{}, domain.ErrInternal("failed to list users", err)
	}
	return domain.NewPage(users, total, page), nil
}

// Search returns one page of users whose name or email contains q.
func (s *UserService) Search(ctx context.Context, q string, page domain.PageRequest) (domain.Page[*domain.User], error) {
	page = page.Normalize()
	users, total, err := s.repo.Search(ctx, q, page)
	if err != nil {
		return domain.Page[*domain.User]{}, domain.ErrInternal("failed to search users", err)
	}
	return domain.NewPage(users, total, page), nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, domain.ErrInternal("failed to find user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user not found")
	}
	return user, nil
}

// Create registers a user on behalf of caller, who must be an admin. Without
// a password the account cannot log in.
func (s *UserService) Create(ctx context.Context, caller domain.Principal, req *domain.CreateUserRequest) (*domain.User, error) {
	if !caller.Role.IsAdmin() {
		return nil, domain.ErrForbidden("administrator role required")
	}
	if err := checkGrant(caller, req.Role); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := s.repo.Exists(ctx, email)
	if err != nil {
		return nil, domain.ErrInternal("failed to check user", err)
	}
	if exists {
		return nil, domain.ErrBadRequest("email already registered")
	}

	var hash string
	if req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, domain.ErrInternal("failed to hash password", err)
		}
		hash = string(hashed)
	}

	troopID, err := s.optionalTroopUUID(ctx, req.TroopID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &domain.User{
		ID:           domain.NewUserID(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PhoneNumber:  req.PhoneNumber,
		Role:         req.Role,
		CouncilID:    req.CouncilID,
		TroopID:      troopID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return nil, domain.ErrBadRequest("email already registered")
		}
		return nil, domain.ErrInternal("failed to create user", err)
	}
	slog.Info("user created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Update replaces the profile fields of a user. Non-admin callers may only
// edit their own profile and cannot change role or activation.
func (s *UserService) Update(ctx context.Context, caller domain.Principal, id string, req *domain.UpdateUserRequest) (*domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkEdit(caller, user, req); err != nil {
		slog.Warn("user update rejected", "caller", caller.UserID, "user_id", id, "error", err)
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email != user.Email {
		exists, err := s.repo.Exists(ctx, email)
		if err != nil {
			return nil, domain.ErrInternal("failed to check user", err)
		}
		if exists {
			return nil, domain.ErrBadRequest("email already registered")
		}
	}

	user.Email = email
	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.PhoneNumber = req.PhoneNumber
	user.Role = req.Role
	user.CouncilID = req.CouncilID
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.EmailVerified != nil {
		user.EmailVerified = *req.EmailVerified
	}
	user.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return nil, domain.ErrBadRequest("email already registered")
		}
		return nil, domain.ErrInternal("failed to update user", err)
	}
	return user, nil
}

// Delete removes a user.
func (s *UserService) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return domain.ErrInternal("failed to delete user", err)
	}
	if !deleted {
		return domain.ErrNotFound("user not found")
	}
	slog.Info("user deleted", "user_id", id)
	return nil
}

// ListByCouncil returns one page of a council's users.
func (s *UserService) ListByCouncil(ctx context.Context, councilID string, page domain.PageRequest) (domain.Page[*domain.User], error) {
	page = page.Normalize()
	users, total, err := s.repo.ListByCouncil(ctx, councilID, page)
	if err != nil {
		return domain.Page[*domain.User]{}, domain.ErrInternal("failed to list council users", err)
	}
	return domain.NewPage(users, total, page), nil
}

// ListByTroop returns every member of a troop.
func (s *UserService) ListByTroop(ctx context.Context, troopID string) ([]*domain.User, error) {
	id, err := s.resolveTroopUUID(ctx, troopID)
	if err != nil {
		return nil, err
	}
	users, err := s.repo.ListByTroop(ctx, id)
	if err != nil {
		return nil, domain.ErrInternal("failed to list troop users", err)
	}
	return users, nil
}

// ListScoutsByTroop returns the scouts of a troop.
func (s *UserService) ListScoutsByTroop(ctx context.Context, troopID string) ([]*domain.User, error) {
	id, err := s.resolveTroopUUID(ctx, troopID)
	if err != nil {
		return nil, err
	}
	users, err := s.repo.ListScoutsByTroop(ctx, id)
	if err != nil {
		return nil, domain.ErrInternal("failed to list troop scouts", err)
	}
	return users, nil
}

// AssignToTroop moves a scout into a troop, replacing any earlier assignment.
func (s *UserService) AssignToTroop(ctx context.Context, userID, troopID string) (*domain.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	troop, err := s.findTroop(ctx, troopID)
	if err != nil {
		return nil, err
	}
	if troop == nil {
		return nil, domain.ErrNotFound("troop not found")
	}
	if user.Role != domain.RoleScout {
		return nil, domain.ErrBadRequest("only scouts can be assigned to a troop")
	}

	if err := s.repo.SetTroop(ctx, userID, &troop.UUID); err != nil {
		return nil, domain.ErrInternal("failed to assign troop", err)
	}
	user.TroopID = &troop.UUID
	user.UpdatedAt = s.now()
	slog.Info("scout assigned to troop", "user_id", userID, "troop", troop.UUID)
	return user, nil
}

// RemoveFromTroop clears the troop assignment of a user.
func (s *UserService) RemoveFromTroop(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetTroop(ctx, userID, nil); err != nil {
		return nil, domain.ErrInternal("failed to remove troop assignment", err)
	}
	user.TroopID = nil
	user.UpdatedAt = s.now()
	return user, nil
}

// UnassignedScouts returns scouts without a troop. A nil councilID spans all
// councils.
func (s *UserService) UnassignedScouts(ctx context.Context, councilID *string) ([]*domain.User, error) {
	users, err := s.repo.ListUnassignedScouts(ctx, councilID)
	if err != nil {
		return nil, domain.ErrInternal("failed to list unassigned scouts", err)
	}
	return users, nil
}

// checkGrant rejects callers giving a role above their own authority.
func checkGrant(caller domain.Principal, role domain.Role) error {
	if role == domain.RoleNationalAdmin && caller.Role != domain.RoleNationalAdmin {
		return domain.ErrForbidden("only national admins may grant NATIONAL_ADMIN")
	}
	if role.IsAdmin() && !caller.Role.IsAdmin() {
		return domain.ErrForbidden("administrator role required")
	}
	return nil
}

func checkEdit(caller domain.Principal, user *domain.User, req *domain.UpdateUserRequest) error {
	if user.Role == domain.RoleNationalAdmin && caller.Role != domain.RoleNationalAdmin {
		return domain.ErrForbidden("only national admins may edit a national admin")
	}
	if caller.Role.IsAdmin() {
		if req.Role != user.Role {
			return checkGrant(caller, req.Role)
		}
		return nil
	}
	if caller.UserID != user.ID {
		return domain.ErrForbidden("cannot modify another user")
	}
	if req.Role != user.Role {
		return domain.ErrForbidden("role changes require an administrator")
	}
	if req.IsActive != nil && *req.IsActive != user.IsActive {
		return domain.ErrForbidden("activation changes require an administrator")
	}
	return nil
}

// findTroop resolves a troop by numeric ID or UUID. It returns nil when no
// troop matches.
func (s *UserService) findTroop(ctx context.Context, ref string) (*domain.Troop, error) {
	var (
		troop *domain.Troop
		err   error
	)
	if id, perr := strconv.ParseInt(ref, 10, 64); perr == nil {
		troop, err = s.troops.FindByID(ctx, id)
	} else {
		troop, err = s.troops.FindByUUID(ctx, ref)
	}
	if err != nil {
		return nil, domain.ErrInternal("failed to find troop", err)
	}
	return troop, nil
}

func (s *UserService) resolveTroopUUID(ctx context.Context, ref string) (string, error) {
	if _, err := strconv.ParseInt(ref, 10, 64); err != nil {
		return ref, nil
	}
	troop, err := s.findTroop(ctx, ref)
	if err != nil {
		return "", err
	}
	if troop == nil {
		return "", domain.ErrNotFound("troop not found")
	}
	return troop.UUID, nil
}

func (s *UserService) optionalTroopUUID(ctx context.Context, ref *string) (*string, error) {
	if ref == nil || strings.TrimSpace(*ref) == "" {
		return nil, nil
	}
	troop, err := s.findTroop(ctx, strings.TrimSpace(*ref))
	if err != nil {
		return nil, err
	}
	if troop == nil {
		return nil, domain.ErrNotFound("troop not found")
	}
	return &troop.UUID, nil
}
