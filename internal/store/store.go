// Package store persists users, their stats and finished games with gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/bluff-backend/internal/engine"
	"github.com/DoyleJ11/bluff-backend/internal/results"
	"github.com/DoyleJ11/bluff-backend/internal/userdir"
)

var ErrDisplayNameTaken = errors.New("display name taken")

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open connects to postgres and migrates the schema.
func Open(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	return New(db, log)
}

// New wraps an existing connection and migrates the schema.
func New(db *gorm.DB, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{db: db, log: log.Named("store")}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	var err error
	for _, m := range []any{&User{}, &Game{}, &Participant{}, &Move{}} {
		if e := s.db.AutoMigrate(m); e != nil {
			err = multierr.Append(err, fmt.Errorf("migrate %T: %w", m, e))
		}
	}
	return err
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// RegisterUser creates a user with the starting balance and rating.
func (s *Store) RegisterUser(ctx context.Context, displayName string) (User, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return User{}, engine.Reject(engine.ErrInvalidArgument, "Display name is required")
	}
	u := User{DisplayName: name, Coins: engine.DefaultCoins, Rating: engine.DefaultRating}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&User{}).Where("display_name = ?", name).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDisplayNameTaken
		}
		return tx.Create(&u).Error
	})
	switch {
	case err == nil:
		s.log.Info("user registered", zap.Int64("user_id", u.ID))
		return u, nil
	case errors.Is(err, ErrDisplayNameTaken) || isUniqueViolation(err):
		return User{}, ErrDisplayNameTaken
	default:
		return User{}, fmt.Errorf("store: register user: %w", err)
	}
}

func (s *Store) User(ctx context.Context, id int64) (User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return User{}, userdir.ErrUserNotFound
		}
		return User{}, fmt.Errorf("store: user %d: %w", id, err)
	}
	return u, nil
}

// GetUser makes the store a userdir.Directory.
func (s *Store) GetUser(ctx context.Context, id int64) (userdir.User, error) {
	u, err := s.User(ctx, id)
	if err != nil {
		return userdir.User{}, err
	}
	return userdir.User{ID: u.ID, DisplayName: u.DisplayName}, nil
}

// RecordGameResult settles one participant of a finished game.
func (s *Store) RecordGameResult(ctx context.Context, userID int64, won bool, coinsDelta int64) error {
	rating, wins := engine.RatingLossBonus, 0
	if won {
		rating, wins = engine.RatingWinBonus, 1
	}
	res := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Updates(map[string]any{
		"coins":        gorm.Expr("coins + ?", coinsDelta),
		"rating":       gorm.Expr("rating + ?", rating),
		"games_played": gorm.Expr("games_played + 1"),
		"games_won":    gorm.Expr("games_won + ?", wins),
	})
	if res.Error != nil {
		return fmt.Errorf("store: record result for %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return userdir.ErrUserNotFound
	}
	return nil
}

// SaveGame archives a finished game together with its seats and moves.
func (s *Store) SaveGame(ctx context.Context, rec results.GameRecord) error {
	g := Game{
		RoomID:    rec.RoomID,
		RoomName:  rec.RoomName,
		Deck:      int(rec.Deck),
		WinnerID:  rec.WinnerID,
		StartedAt: rec.StartedAt,
		EndedAt:   rec.EndedAt,
	}
	for _, p := range rec.Participants {
		g.Participants = append(g.Participants, Participant{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Position:    p.Position,
			Won:         p.Won,
			CardsLeft:   p.CardsLeft,
			CoinsDelta:  p.CoinsDelta,
		})
	}
	for _, m := range rec.Moves {
		g.Moves = append(g.Moves, Move{
			Seq:         m.Seq,
			PlayerID:    m.PlayerID,
			TargetID:    m.TargetID,
			Cards:       formatCards(m.Cards),
			ClaimedRank: int(m.ClaimedRank),
			Outcome:     string(m.Outcome),
			At:          m.At,
		})
	}
	if err := s.db.WithContext(ctx).Create(&g).Error; err != nil {
		return fmt.Errorf("store: save game for room %d: %w", rec.RoomID, err)
	}
	return nil
}

// Games returns the archived games of a room, newest first.
func (s *Store) Games(ctx context.Context, roomID int64) ([]Game, error) {
	var out []Game
	err := s.db.WithContext(ctx).
		Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Moves", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		Where("room_id = ?", roomID).
		Order("ended_at desc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("store: games for room %d: %w", roomID, err)
	}
	return out, nil
}

// Leaderboard returns the top n users by rating.
func (s *Store) Leaderboard(ctx context.Context, n int) ([]User, error) {
	if n <= 0 {
		n = 10
	}
	var out []User
	err := s.db.WithContext(ctx).
		Order("rating desc").Order("games_won desc").Order("id").
		Limit(n).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("store: leaderboard: %w", err)
	}
	return out, nil
}

func formatCards(cards []engine.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
