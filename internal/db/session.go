package db

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
)

type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Expires time.Time `json:"expires,omitempty"`
}

// LoadCookies returns the persisted API session cookies
func (db *DB) LoadCookies() ([]*http.Cookie, error) {
	raw, err := db.GetSetting(SettingSession)
	if err != nil || raw == "" {
		return nil, err
	}
	var stored []storedCookie
	if err := sonic.UnmarshalString(raw, &stored); err != nil {
		return nil, err
	}
	now := time.Now()
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, s := range stored {
		if !s.Expires.IsZero() && s.Expires.Before(now) {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: s.Name, Value: s.Value, Path: "/", Expires: s.Expires})
	}
	return cookies, nil
}

// SaveCookies replaces the persisted API session cookies
func (db *DB) SaveCookies(cookies []*http.Cookie) error {
	if len(cookies) == 0 {
		return db.DeleteSetting(SettingSession)
	}
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value, Expires: c.Expires})
	}
	raw, err := sonic.MarshalString(stored)
	if err != nil {
		return err
	}
	return db.SetSetting(SettingSession, raw)
}
