package account

import (
	"context"
	"errors"
	"strings"

	"github.com/RiyaTorgal/SocietyPay-backend/app/models"
	"github.com/RiyaTorgal/SocietyPay-backend/app/repository"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/apperr"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/usercontext"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrInvalidCredentials is returned by Login on a password mismatch
var ErrInvalidCredentials = apperr.Unauthorized("invalid credentials")

// TokenIssuer signs bearer tokens for a principal
type TokenIssuer interface {
	Issue(p usercontext.Principal) (string, error)
}

// PendingEnsurer creates the current month's payment for a newly housed user
type PendingEnsurer interface {
	EnsurePendingForUser(ctx context.Context, userID uint) (*models.Payment, bool, error)
}

type Service struct {
	repos    *repository.Repositories
	tokens   TokenIssuer
	payments PendingEnsurer
}

func NewService(repos *repository.Repositories, tokens TokenIssuer, payments PendingEnsurer) *Service {
	return &Service{repos: repos, tokens: tokens, payments: payments}
}

type RegisterInput struct {
	Name               string           `json:"name"`
	Email              string           `json:"email"`
	Phone              string           `json:"phone"`
	Password           string           `json:"password"`
	Role               string           `json:"role"`
	FlatNumber         string           `json:"flatNumber"`
	MonthlyMaintenance *decimal.Decimal `json:"monthlyMaintenance"`
}

type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type AssignResult struct {
	Flat           models.FlatWithOwner `json:"flat"`
	PaymentCreated bool                 `json:"paymentCreated"`
}

type UpdateUserInput struct {
	Name               *string          `json:"name"`
	Email              *string          `json:"email"`
	Phone              *string          `json:"phone"`
	Role               *string          `json:"role"`
	FlatID             *uint            `json:"flatId"`
	MonthlyMaintenance *decimal.Decimal `json:"monthlyMaintenance"`
	Password           *string          `json:"password"`
}

type CreateFlatInput struct {
	FlatNumber         string          `json:"flatNumber"`
	MonthlyMaintenance decimal.Decimal `json:"monthlyMaintenance"`
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		return apperr.InvalidInput("%s is invalid (%s)", strings.ToLower(f.Field()), f.Tag())
	}
	if errors.Is(err, models.ErrNonPositiveAmount) {
		return apperr.InvalidInput("monthly maintenance must be positive")
	}
	return apperr.InvalidInput("%s", err.Error())
}

// Register creates a user and, optionally, houses them in a flat by number.
// An unknown flat number is created with the given monthly maintenance.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" || in.Password == "" {
		return nil, apperr.InvalidInput("name, email, and password are required")
	}

	if _, err := s.repos.User.GetByEmail(email); err == nil {
		return nil, apperr.Conflict("user already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.FromStorage(err, "load user")
	}

	user, err := models.CreateUser(name, email, strings.TrimSpace(in.Phone), in.Password)
	if err != nil {
		return nil, validationError(err)
	}
	role, err := s.registrationRole(in.Role)
	if err != nil {
		return nil, err
	}
	user.Role = role

	if number := strings.TrimSpace(in.FlatNumber); number != "" {
		flat, ferr := s.flatForRegistration(number, in.MonthlyMaintenance)
		if ferr != nil {
			return nil, ferr
		}
		user.FlatID = &flat.ID
	}

	if err := s.repos.User.Create(user); err != nil {
		return nil, apperr.FromStorage(err, "user already exists or flat is already assigned")
	}
	log.Infof("[Accounts] Registered user %d (%s)", user.ID, user.Email)

	if user.HasFlat() {
		s.ensurePending(ctx, user.ID)
	}
	return s.profile(user.ID)
}

// registrationRole lets the very first account bootstrap the ADMIN role;
// later self-registrations are USERs until an admin promotes them.
func (s *Service) registrationRole(requested string) (string, error) {
	role := strings.ToUpper(strings.TrimSpace(requested))
	switch role {
	case "", models.ROLE_USER:
		return models.ROLE_USER, nil
	case models.ROLE_ADMIN:
		if _, err := s.repos.User.FirstAdmin(); err == nil {
			return models.ROLE_USER, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperr.FromStorage(err, "load admin")
		}
		return models.ROLE_ADMIN, nil
	default:
		return "", apperr.InvalidInput("role must be USER or ADMIN")
	}
}

func (s *Service) flatForRegistration(number string, maintenance *decimal.Decimal) (*models.Flat, error) {
	flat, err := s.repos.Flat.GetByNumber(number)
	switch {
	case err == nil:
		occupant, oerr := s.repos.User.GetByFlatID(flat.ID)
		if oerr == nil {
			return nil, apperr.Conflict("flat %s is already assigned to %s", number, occupant.Name)
		}
		if !errors.Is(oerr, gorm.ErrRecordNotFound) {
			return nil, apperr.FromStorage(oerr, "load occupant")
		}
		return flat, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if maintenance == nil {
			return nil, apperr.InvalidInput("for new flats, please provide the monthly maintenance amount")
		}
		return s.createFlat(CreateFlatInput{FlatNumber: number, MonthlyMaintenance: *maintenance})
	default:
		return nil, apperr.FromStorage(err, "load flat")
	}
}

func (s *Service) ensurePending(ctx context.Context, userID uint) bool {
	if s.payments == nil {
		return false
	}
	_, created, err := s.payments.EnsurePendingForUser(ctx, userID)
	if err != nil {
		log.Warnf("[Accounts] Pending payment for user %d not created: %v", userID, err)
		return false
	}
	return created
}

// Login checks the password and signs a token.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	_ = ctx
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.InvalidInput("email and password are required")
	}
	user, err := s.repos.User.GetByEmail(email)
	if err != nil {
		return nil, apperr.FromStorage(err, "user not found")
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(usercontext.Principal{UserID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "sign token")
	}
	return &LoginResult{Token: token, User: user}, nil
}

func (s *Service) Profile(ctx context.Context, userID uint) (*models.User, error) {
	_ = ctx
	return s.profile(userID)
}

func (s *Service) profile(userID uint) (*models.User, error) {
	user, err := s.repos.User.GetByID(userID)
	if err != nil {
		return nil, apperr.FromStorage(err, "user not found")
	}
	return user, nil
}

// AdminContact returns the first administrator
func (s *Service) AdminContact(ctx context.Context) (*models.User, error) {
	_ = ctx
	admin, err := s.repos.User.FirstAdmin()
	if err != nil {
		return nil, apperr.FromStorage(err, "admin contact not found")
	}
	return admin, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	_ = ctx
	users, err := s.repos.User.List()
	if err != nil {
		return nil, apperr.FromStorage(err, "list users")
	}
	return users, nil
}

// AssignFlat moves a user into a flat nobody else occupies.
func (s *Service) AssignFlat(ctx context.Context, userID, flatID uint) (*AssignResult, error) {
	user, err := s.repos.User.GetByID(userID)
	if err != nil {
		return nil, apperr.FromStorage(err, "user not found")
	}
	flat, err := s.repos.Flat.GetByID(flatID)
	if err != nil {
		return nil, apperr.FromStorage(err, "flat not found")
	}
	if occupant, oerr := s.repos.User.GetByFlatID(flat.ID); oerr == nil && occupant.ID != user.ID {
		return nil, apperr.Conflict("flat %s is already assigned to %s", flat.FlatNumber, occupant.Name)
	} else if oerr != nil && !errors.Is(oerr, gorm.ErrRecordNotFound) {
		return nil, apperr.FromStorage(oerr, "load occupant")
	}

	if err := s.repos.User.AssignFlat(user.ID, flat.ID); err != nil {
		return nil, apperr.FromStorage(err, "flat is already assigned")
	}
	log.Infof("[Accounts] Assigned flat %s to user %d", flat.FlatNumber, user.ID)

	user.FlatID = &flat.ID
	created := s.ensurePending(ctx, user.ID)
	return &AssignResult{Flat: models.NewFlatWithOwner(*flat, user), PaymentCreated: created}, nil
}

// UpdateUser edits a user. A new monthly maintenance reprices the flat and
// every open (PENDING or FAILED) payment of it.
func (s *Service) UpdateUser(ctx context.Context, userID uint, in UpdateUserInput) (*models.User, error) {
	user, err := s.repos.User.GetByID(userID)
	if err != nil {
		return nil, apperr.FromStorage(err, "user not found")
	}

	if in.Name != nil {
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Role != nil {
		user.Role = strings.ToUpper(strings.TrimSpace(*in.Role))
	}
	if in.Password != nil {
		if len(*in.Password) < 6 {
			return nil, apperr.InvalidInput("password must be at least 6 characters")
		}
		if err := user.SetPassword(*in.Password); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "hash password")
		}
	}
	movedIn := false
	if in.FlatID != nil {
		if *in.FlatID == 0 {
			user.FlatID = nil
		} else {
			flat, ferr := s.repos.Flat.GetByID(*in.FlatID)
			if ferr != nil {
				return nil, apperr.FromStorage(ferr, "flat not found")
			}
			movedIn = !user.HasFlat() || *user.FlatID != flat.ID
			user.FlatID = &flat.ID
		}
	}
	if err := user.Validate(); err != nil {
		return nil, validationError(err)
	}

	user.Flat = nil
	if err := s.repos.User.Update(user); err != nil {
		return nil, apperr.FromStorage(err, "email or flat is already taken")
	}

	if in.MonthlyMaintenance != nil && user.HasFlat() {
		if _, err := s.UpdateFlatMaintenance(ctx, *user.FlatID, *in.MonthlyMaintenance); err != nil {
			return nil, err
		}
	}
	if movedIn {
		s.ensurePending(ctx, user.ID)
	}
	return s.profile(user.ID)
}

func (s *Service) DeleteUser(ctx context.Context, userID uint) error {
	_ = ctx
	if err := s.repos.User.Delete(userID); err != nil {
		return apperr.FromStorage(err, "user not found")
	}
	log.Infof("[Accounts] Deleted user %d", userID)
	return nil
}

func (s *Service) CreateFlat(ctx context.Context, in CreateFlatInput) (*models.Flat, error) {
	_ = ctx
	return s.createFlat(in)
}

func (s *Service) createFlat(in CreateFlatInput) (*models.Flat, error) {
	flat := &models.Flat{
		FlatNumber:         strings.TrimSpace(in.FlatNumber),
		MonthlyMaintenance: in.MonthlyMaintenance,
	}
	if err := flat.Validate(); err != nil {
		return nil, validationError(err)
	}
	if err := s.repos.Flat.Create(flat); err != nil {
		return nil, apperr.FromStorage(err, "flat already exists")
	}
	log.Infof("[Accounts] Created flat %s", flat.FlatNumber)
	return flat, nil
}

// UpdateFlatMaintenance sets the flat's monthly charge and reprices its open payments.
// Returns the number of payments repriced.
func (s *Service) UpdateFlatMaintenance(ctx context.Context, flatID uint, amount decimal.Decimal) (int64, error) {
	_ = ctx
	if !amount.IsPositive() {
		return 0, apperr.InvalidInput("monthly maintenance must be positive")
	}
	if err := s.repos.Flat.UpdateMaintenance(flatID, amount); err != nil {
		return 0, apperr.FromStorage(err, "flat not found")
	}
	n, err := s.repos.Payment.UpdateOpenAmounts(flatID, amount)
	if err != nil {
		return 0, apperr.FromStorage(err, "update open payments")
	}
	log.Infof("[Accounts] Flat %d maintenance set to %s, %d open payments repriced", flatID, amount.StringFixed(2), n)
	return n, nil
}

// ListFlats returns every flat with its owner derived from the current occupant.
func (s *Service) ListFlats(ctx context.Context) ([]models.FlatWithOwner, error) {
	_ = ctx
	flats, err := s.repos.Flat.List()
	if err != nil {
		return nil, apperr.FromStorage(err, "list flats")
	}
	ids := make([]uint, 0, len(flats))
	for _, f := range flats {
		ids = append(ids, f.ID)
	}
	occupants, err := s.repos.User.OccupantsByFlat(ids)
	if err != nil {
		return nil, apperr.FromStorage(err, "load occupants")
	}
	out := make([]models.FlatWithOwner, 0, len(flats))
	for _, f := range flats {
		var occupant *models.User
		if u, ok := occupants[f.ID]; ok {
			u := u
			occupant = &u
		}
		out = append(out, models.NewFlatWithOwner(f, occupant))
	}
	return out, nil
}

// MyFlat returns the caller's flat, nil when they have none.
func (s *Service) MyFlat(ctx context.Context, userID uint) (*models.FlatWithOwner, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasFlat() || user.Flat == nil {
		return nil, nil
	}
	fo := models.NewFlatWithOwner(*user.Flat, user)
	return &fo, nil
}
