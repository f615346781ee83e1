package service

import (
	"fmt"
	"time"

	"github.com/daybookhq/daybook/internal/model"
	"github.com/daybookhq/daybook/internal/repository"
	"github.com/google/uuid"
)

type JournalService struct {
	entryRepository repository.EntryRepository
}

func NewJournalService(entryRepository repository.EntryRepository) *JournalService {
	return &JournalService{entryRepository: entryRepository}
}

func (s *JournalService) Create(ownerID, timeBlock string, answers []*model.Answer) (*model.JournalEntry, error) {
	entry := &model.JournalEntry{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		TimeBlock: timeBlock,
		Timestamp: time.Now(),
		Answers:   answers,
	}

	err := s.entryRepository.Create(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to create journal entry: %w", err)
	}

	return entry, nil
}

func (s *JournalService) Entries(ownerID string) ([]*model.JournalEntry, error) {
	return s.entryRepository.ByOwner(ownerID)
}

func (s *JournalService) Entry(entryID string) (*model.JournalEntry, error) {
	return s.entryRepository.ByID(entryID)
}

// Update is a full replace: the timestamp moves to now and the previous
// answer set is discarded in favor of the submitted one.
func (s *JournalService) Update(entry *model.JournalEntry, timeBlock string, answers []*model.Answer) (*model.JournalEntry, error) {
	entry.TimeBlock = timeBlock
	entry.Timestamp = time.Now()
	entry.Answers = answers

	err := s.entryRepository.Update(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to update journal entry: %w", err)
	}

	return entry, nil
}
