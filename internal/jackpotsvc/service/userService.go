package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/models"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/store"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrReferrerNotFound = errors.New("referrer not found")
	ErrSelfReferral     = errors.New("own referral link cannot be used")
	ErrReferralUsed     = errors.New("referral link already used")
)

// signupBonus is credited to brand new users so they can play right away.
var signupBonus = decimal.NewFromInt(10)

// referralReward goes to the referrer when a referred user links up.
var referralReward = decimal.NewFromInt(1)

type UserService struct {
	users        *store.UserStore
	transactions *store.TransactionStore
	botName      string
}

func NewUserService(users *store.UserStore, transactions *store.TransactionStore, botName string) *UserService {
	return &UserService{users: users, transactions: transactions, botName: botName}
}

// GetOrCreateFromTelegram resolves a telegram login to a local user,
// creating one with the signup bonus on first contact.
func (s *UserService) GetOrCreateFromTelegram(ctx context.Context, telegramID, username, firstName, lastName string) (*models.User, bool, error) {
	existing, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if err := s.users.UpdateIdentity(ctx, existing.UserID, username, firstName, lastName); err != nil {
			log.Errorf("refresh identity for user %d: %v", existing.UserID, err)
		}
		existing.Username = username
		existing.FirstName = firstName
		existing.LastName = lastName
		return existing, false, nil
	}

	created, err := s.users.Create(ctx, models.User{
		TelegramID: telegramID,
		Username:   username,
		FirstName:  firstName,
		LastName:   lastName,
		Balance:    signupBonus,
		Language:   "ru",
	})
	if err != nil {
		return nil, false, err
	}
	log.Infof("user %d created for telegram id %s", created.UserID, telegramID)
	return created, true, nil
}

func (s *UserService) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// Profile is the aggregate the profile endpoint returns.
type Profile struct {
	User           *models.User         `json:"user"`
	TotalWins      int64                `json:"total_wins"`
	TotalReferrals int64                `json:"total_referrals"`
	Transactions   []models.Transaction `json:"transactions"`
	Games          []store.GameRecord   `json:"games"`
}

func (s *UserService) Profile(ctx context.Context, userID int64) (*Profile, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	wins, err := s.transactions.CountWinsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	referrals, err := s.users.CountReferrals(ctx, userID)
	if err != nil {
		return nil, err
	}
	txs, err := s.transactions.ListByUser(ctx, userID, 10)
	if err != nil {
		return nil, err
	}
	games, err := s.users.GamesHistory(ctx, userID, 10)
	if err != nil {
		return nil, err
	}

	return &Profile{
		User:           u,
		TotalWins:      wins,
		TotalReferrals: referrals,
		Transactions:   txs,
		Games:          games,
	}, nil
}

func (s *UserService) UpdateSettings(ctx context.Context, userID int64, isAnonymous *bool, language *string, darkMode *bool) (*models.User, error) {
	if err := s.users.UpdateSettings(ctx, userID, isAnonymous, language, darkMode); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, userID)
}

// ReferralInfo is the referral endpoint payload.
type ReferralInfo struct {
	ReferralLink     string          `json:"referral_link"`
	ReferralsCount   int64           `json:"referrals_count"`
	ReferralEarnings decimal.Decimal `json:"referral_earnings"`
}

func (s *UserService) ReferralInfo(ctx context.Context, userID int64) (*ReferralInfo, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	count, err := s.users.CountReferrals(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ReferralInfo{
		ReferralLink:     fmt.Sprintf("https://t.me/%s?start=ref_%s", s.botName, u.TelegramID),
		ReferralsCount:   count,
		ReferralEarnings: u.ReferralEarnings,
	}, nil
}

// AdjustBalance applies a manual balance change and returns the new balance.
func (s *UserService) AdjustBalance(ctx context.Context, userID int64, amount decimal.Decimal, note string) (decimal.Decimal, error) {
	if note == "" {
		note = "manual balance adjustment"
	}
	return s.users.AdjustBalance(ctx, userID, amount, note)
}

// UseReferral links a referrer to the user once and pays the referrer the
// fixed reward.
func (s *UserService) UseReferral(ctx context.Context, userID int64, referralCode string) (*models.User, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.ReferrerID != nil {
		return nil, ErrReferralUsed
	}

	referrerTelegramID := strings.TrimPrefix(referralCode, "ref_")
	referrer, err := s.users.GetByTelegramID(ctx, referrerTelegramID)
	if err != nil {
		return nil, err
	}
	if referrer == nil {
		return nil, ErrReferrerNotFound
	}
	if referrer.UserID == u.UserID {
		return nil, ErrSelfReferral
	}

	linked, err := s.users.SetReferrer(ctx, u.UserID, referrer.UserID)
	if err != nil {
		return nil, err
	}
	if !linked {
		return nil, ErrReferralUsed
	}

	note := fmt.Sprintf("referral reward for inviting user %d", u.UserID)
	if err := s.users.CreditReferral(ctx, referrer.UserID, referralReward, note); err != nil {
		log.Errorf("credit referral to user %d: %v", referrer.UserID, err)
	}
	return referrer, nil
}
