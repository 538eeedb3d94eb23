package storage

import "github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal"

// Repositories bundles the three store contracts a single backend serves.
type Repositories struct {
	Entries EntryRepository
	Events  EventRepository
	Reports ReportRepository
}

func NewFileRepositories(entriesFile, fortunesFile, reportsFile string, logger internal.Logger) (*Repositories, error) {
	s, err := NewFileStorage(entriesFile, fortunesFile, reportsFile, logger)
	if err != nil {
		return nil, err
	}
	return &Repositories{Entries: s, Events: s, Reports: s}, nil
}

func NewPostgresRepositories(dsn string, logger internal.Logger) (*Repositories, error) {
	s, err := NewPostgresStorage(dsn, logger)
	if err != nil {
		return nil, err
	}
	return &Repositories{Entries: s, Events: s, Reports: s}, nil
}
