package model

import (
	"context"
	"time"

	mgo "github.com/Kesh3805/job-portal/service/mgo"
	"github.com/Kesh3805/job-portal/tools/errs"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Account status
const (
	UserNormal int32 = 0
	UserBanned int32 = 1
	UserClosed int32 = 2
)

// Account roles on the job board.
const (
	RoleSeeker    = "seeker"
	RoleEmployer  = "employer"
	RoleModerator = "moderator"
)

// User is the user master record. The realtime core only reads the
// display fields and writes the presence pair (is_online, last_seen).
type User struct {
	UserID   string `bson:"user_id" json:"userId"` // immutable primary key
	Name     string `bson:"name" json:"name"`
	Email    string `bson:"email,omitempty" json:"email,omitempty"`
	Avatar   string `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Role     string `bson:"role,omitempty" json:"role,omitempty"`
	Status   int32  `bson:"status,omitempty" json:"-"`
	Headline string `bson:"headline,omitempty" json:"headline,omitempty"`

	IsOnline bool       `bson:"is_online" json:"isOnline"`
	LastSeen *time.Time `bson:"last_seen,omitempty" json:"lastSeen,omitempty"`

	CreateTime time.Time `bson:"create_time" json:"-"`
}

func (u *User) GetTableName() string {
	return "user"
}

func (u *User) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(u.GetTableName())
}

// Summary is the display projection handed to realtime payloads.
type Summary struct {
	UserID   string     `json:"userId"`
	Name     string     `json:"name"`
	Avatar   string     `json:"avatar,omitempty"`
	IsOnline bool       `json:"isOnline"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

func (u *User) Summary() *Summary {
	return &Summary{
		UserID:   u.UserID,
		Name:     u.Name,
		Avatar:   u.Avatar,
		IsOnline: u.IsOnline,
		LastSeen: u.LastSeen,
	}
}

// Directory is the Mongo-backed user collaborator.
type Directory struct {
	coll *mongo.Collection
}

func NewDirectory(db *mongo.Database) *Directory {
	u := User{}
	return &Directory{coll: db.Collection(u.GetTableName())}
}

func (d *Directory) FindByID(ctx context.Context, userID string) (*User, error) {
	var u User
	err := d.coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrNotFound("user not found").WithDetail(userID)
	}
	if err != nil {
		return nil, errs.ErrTransient("user lookup failed", err)
	}
	return &u, nil
}

// UpdateOnlineStatus persists the presence pair on the user record.
// Best-effort from the registry's point of view.
func (d *Directory) UpdateOnlineStatus(ctx context.Context, userID string, isOnline bool, lastSeen time.Time) error {
	_, err := d.coll.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"is_online": isOnline, "last_seen": lastSeen}},
	)
	if err != nil {
		return errs.ErrTransient("online status update failed", err)
	}
	return nil
}
