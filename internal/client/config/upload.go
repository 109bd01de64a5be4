package config

import (
	"errors"
	"net/url"
	"time"
)

const (
	DefaultAprsServer = "rotate.aprs2.net:14580"
	DefaultUploadRate = TOMLDuration(30 * time.Second)

	// "<id>" substitutes the sonde serial as the APRS object name
	DefaultAprsObjectID = "<id>"
	DefaultAprsComment  = "Radiosonde <freq> <type> <vel_v>"
)

type AprsConfig struct {
	Enabled bool   `toml:"enabled"`
	Server  string `toml:"server,omitempty"`
	User    string `toml:"user,omitempty"`
	Pass    string `toml:"pass,omitempty" comment:"APRS-IS passcode for the user callsign"`
	// Object name pushed to the map, "<id>" uses the sonde serial
	ObjectID      string       `toml:"object_id,omitempty"`
	CustomComment string       `toml:"custom_comment,omitempty" comment:"placeholders: <freq> <id> <vel_v> <type>"`
	UploadRate    TOMLDuration `toml:"upload_rate,omitempty"`
}

type AprsConfigManager struct {
	BaseConfigManager[AprsConfig]
}

// Verify verifies the "hard" conditions that the rest of the code relies on
func (a *AprsConfigManager) Verify() error {
	c := a.conf

	if c.Server == "" {
		c.Server = DefaultAprsServer
	}
	if c.ObjectID == "" {
		c.ObjectID = DefaultAprsObjectID
	}
	if c.CustomComment == "" {
		c.CustomComment = DefaultAprsComment
	}
	if c.UploadRate == 0 {
		c.UploadRate = DefaultUploadRate
	}

	if c.Enabled && (c.User == "" || c.Pass == "") {
		return errors.New("aprs output enabled but user or passcode missing")
	}

	return nil
}

func NewAprsConfigManager(config *AprsConfig, mgr *Manager) *AprsConfigManager {
	j := AprsConfigManager{}
	j.conf = config
	j.mgr = mgr

	return &j
}

type HabitatConfig struct {
	Enabled bool   `toml:"enabled"`
	Url     string `toml:"url,omitempty"`
	// Payload document callsign used for the habitat sentence
	Callsign string `toml:"callsign,omitempty"`
}

type HabitatConfigManager struct {
	BaseConfigManager[HabitatConfig]
}

func (a *HabitatConfigManager) Verify() error {
	if !a.conf.Enabled {
		return nil
	}

	if a.conf.Url == "" {
		return errors.New("habitat output enabled but no url configured")
	}
	if _, err := url.Parse(a.conf.Url); err != nil {
		return err
	}

	return nil
}

func NewHabitatConfigManager(config *HabitatConfig, mgr *Manager) *HabitatConfigManager {
	j := HabitatConfigManager{}
	j.conf = config
	j.mgr = mgr

	return &j
}

type StorageConfig struct {
	// Path of the local telemetry database, empty disables frame logging
	Path string `toml:"path,omitempty"`
}

type StorageConfigManager struct {
	BaseConfigManager[StorageConfig]
}

func (a *StorageConfigManager) Verify() error {
	return nil
}

func NewStorageConfigManager(config *StorageConfig, mgr *Manager) *StorageConfigManager {
	j := StorageConfigManager{}
	j.conf = config
	j.mgr = mgr

	return &j
}
