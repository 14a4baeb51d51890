package model

import (
	"time"
)

type Policy struct {
	ID             string     `gorm:"primaryKey;type:varchar(36)"`
	AccountID      string     `gorm:"column:account_id;not null;uniqueIndex:idx_account_name"`
	Name           string     `gorm:"column:name;not null;uniqueIndex:idx_account_name"`
	Description    string     `gorm:"column:description"`
	Conditions     string     `gorm:"column:conditions;not null"`
	IsEnabled      bool       `gorm:"column:is_enabled;not null"`
	Actions        string     `gorm:"column:actions"`
	Ctime          time.Time  `gorm:"column:ctime;autoCreateTime"`
	Mtime          time.Time  `gorm:"column:mtime;autoUpdateTime"`
	LastEvaluation *time.Time `gorm:"column:last_evaluation"`
}

type PolicyList []Policy

type Trigger struct {
	ID       string    `gorm:"primaryKey;type:varchar(36)"`
	PolicyID string    `gorm:"column:policy_id;not null;index"`
	HostID   string    `gorm:"column:host_id"`
	HostName string    `gorm:"column:host_name;not null"`
	Ctime    time.Time `gorm:"column:ctime;autoCreateTime"`
}

type TriggerList []Trigger
