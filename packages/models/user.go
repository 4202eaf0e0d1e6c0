package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	Role         string             `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// PredictionRecord - сохраненный результат прогноза пользователя
type PredictionRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"userID" json:"userID"`
	Input     PatientInput       `bson:"input" json:"input"`
	Result    RiskResult         `bson:"result" json:"result"`
	Source    string             `bson:"source" json:"source"` // single | batch
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

const (
	SourceSingle = "single"
	SourceBatch  = "batch"
)
