package models

import (
	"encoding/json"
	"time"
)

// Bot встраиваемый голосовой бот пользователя.
type Bot struct {
	ID             string
	UserID         string
	Name           string
	Slug           string          // Публичный идентификатор для встраивания
	SystemPrompt   string          // Инструкции для языковой модели
	VoiceConfig    json.RawMessage // Настройки голоса, хранятся как есть
	ThemeConfig    json.RawMessage // Настройки оформления виджета
	IsActive       bool
	IsPublic       bool     // Публичный бот открывается с любого сайта
	AllowedDomains []string // Точные значения Origin для непубличного бота
}

// FileStatus статус обработки файла базы знаний.
type FileStatus string

// Статусы файлов базы знаний.
const (
	FilePending    FileStatus = "PENDING"
	FileProcessing FileStatus = "PROCESSING"
	FileReady      FileStatus = "READY"
	FileError      FileStatus = "ERROR"
)

// File документ базы знаний бота.
type File struct {
	ID          string
	BotID       string
	Filename    string
	MimeType    string
	SizeBytes   int64
	StoragePath string
	Status      FileStatus
	CreatedAt   time.Time
}
