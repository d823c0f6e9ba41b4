package repo

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/tazhibayda/edu-auth/internal/domain"
)

const usersColl = "users"

// EnsureUserIndexes creates the uniqueness constraints the identity model
// relies on: email unique across providers, (oauth_provider, oauth_id) unique
// when both are set.
func (s *Store) EnsureUserIndexes(ctx context.Context) error {
	coll := s.DB.Collection(usersColl)

	if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "oauth_provider", Value: 1}, {Key: "oauth_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{
			"oauth_provider": bson.M{"$exists": true},
			"oauth_id":       bson.M{"$exists": true},
		}),
	})
	return err
}

// IsDup reports whether err is a Mongo unique-constraint violation.
func IsDup(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.users.find_by_email")
	defer sp.Finish()

	var u domain.User
	err := s.DB.Collection(usersColl).
		FindOne(ctx, bson.M{"email": NormalizeEmail(email)}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		sp.SetTag("error", err)
		return nil, err
	}
	return &u, nil
}

func (s *Store) FindUserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.users.find_by_id")
	defer sp.Finish()

	var u domain.User
	err := s.DB.Collection(usersColl).FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		sp.SetTag("error", err)
		return nil, err
	}
	return &u, nil
}

func (s *Store) FindUserByOAuth(ctx context.Context, provider, oauthID string) (*domain.User, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.users.find_by_oauth",
		tracer.Tag("provider", provider))
	defer sp.Finish()

	var u domain.User
	err := s.DB.Collection(usersColl).
		FindOne(ctx, bson.M{"oauth_provider": provider, "oauth_id": oauthID}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		sp.SetTag("error", err)
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a local (password) account. The caller hashes the
// password; u.ID is filled in on success.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.users.insert")
	defer sp.Finish()

	now := time.Now().UTC()
	u.Email = NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = domain.RoleStudent
	}
	u.IsActive = true
	u.CreatedAt = now
	u.UpdatedAt = now

	res, err := s.DB.Collection(usersColl).InsertOne(ctx, u)
	if err != nil {
		sp.SetTag("error", err)
		return err
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// CreateGoogleUser inserts an OAuth-only account: provider identity, no
// password hash.
func (s *Store) CreateGoogleUser(ctx context.Context, oauthID, email, name, avatar string) (*domain.User, error) {
	u := &domain.User{
		Email:         email,
		Name:          name,
		Avatar:        avatar,
		OAuthProvider: domain.ProviderGoogle,
		OAuthID:       oauthID,
		Role:          domain.RoleStudent,
	}
	if err := s.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// LinkGoogleAccount attaches a Google identity to an existing local record.
// The avatar is only filled in when the record has none.
func (s *Store) LinkGoogleAccount(ctx context.Context, userID primitive.ObjectID, oauthID, avatar string) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.users.link_google")
	defer sp.Finish()

	set := bson.M{
		"oauth_provider": domain.ProviderGoogle,
		"oauth_id":       oauthID,
		"updated_at":     time.Now().UTC(),
	}
	filter := bson.M{"_id": userID}
	if avatar != "" {
		// two-step: only set avatar when absent
		_, _ = s.DB.Collection(usersColl).UpdateOne(ctx,
			bson.M{"_id": userID, "avatar": bson.M{"$in": bson.A{nil, ""}}},
			bson.M{"$set": bson.M{"avatar": avatar}})
	}
	_, err := s.DB.Collection(usersColl).UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		sp.SetTag("error", err)
	}
	return err
}

func (s *Store) UpdatePassword(ctx context.Context, userID primitive.ObjectID, newHash string) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.users.update_password")
	defer sp.Finish()

	_, err := s.DB.Collection(usersColl).UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"password_hash": newHash, "updated_at": time.Now().UTC()}})
	if err != nil {
		sp.SetTag("error", err)
	}
	return err
}

// SetPassword stores the first password hash on an OAuth-only record. The
// filter guards against a concurrent set: it only matches while the record
// still has no hash.
func (s *Store) SetPassword(ctx context.Context, userID primitive.ObjectID, newHash string) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.users.set_password")
	defer sp.Finish()

	res, err := s.DB.Collection(usersColl).UpdateOne(ctx,
		bson.M{"_id": userID, "password_hash": bson.M{"$in": bson.A{nil, ""}}},
		bson.M{"$set": bson.M{"password_hash": newHash, "updated_at": time.Now().UTC()}})
	if err != nil {
		sp.SetTag("error", err)
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// UpdateProfile applies a partial name/avatar update and returns the fresh record.
func (s *Store) UpdateProfile(ctx context.Context, userID primitive.ObjectID, name, avatar string) (*domain.User, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.users.update_profile")
	defer sp.Finish()

	set := bson.M{"updated_at": time.Now().UTC()}
	if name != "" {
		set["name"] = name
	}
	if avatar != "" {
		set["avatar"] = avatar
	}

	res := s.DB.Collection(usersColl).FindOneAndUpdate(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After))
	var u domain.User
	if err := res.Decode(&u); err != nil {
		sp.SetTag("error", err)
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// DeactivateUser flips is_active off; records are never hard-deleted.
func (s *Store) DeactivateUser(ctx context.Context, userID primitive.ObjectID) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.users.deactivate")
	defer sp.Finish()

	res, err := s.DB.Collection(usersColl).UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now().UTC()}})
	if err != nil {
		sp.SetTag("error", err)
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	return s.DB.Collection(usersColl).CountDocuments(ctx, bson.M{})
}
