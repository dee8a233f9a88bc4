package records

import (
	"context"
	"time"
)

// Backup is the export document. Audio blob bytes are deliberately excluded;
// only recording metadata travels with a backup.
type Backup struct {
	AudioRecords   []AudioRecord   `json:"audioRecords"`
	CookingRecords []CookingRecord `json:"cookingRecords"`
	Ingredients    []Ingredient    `json:"ingredients"`
	EatingRecords  []EatingRecord  `json:"eatingRecords"`
	Settings       *Settings       `json:"settings,omitempty"`
	ExportDate     time.Time       `json:"exportDate"`
	Version        string          `json:"version"`
}

// Export snapshots every collection into a single document.
func (s *Store) Export(ctx context.Context) (*Backup, error) {
	audio, err := loadCollection[AudioRecord](ctx, s, keyAudioRecords)
	if err != nil {
		return nil, err
	}
	cooking, err := loadCollection[CookingRecord](ctx, s, keyCookingRecords)
	if err != nil {
		return nil, err
	}
	ingredients, err := loadCollection[Ingredient](ctx, s, keyIngredients)
	if err != nil {
		return nil, err
	}
	eating, err := loadCollection[EatingRecord](ctx, s, keyEatingRecords)
	if err != nil {
		return nil, err
	}
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	return &Backup{
		AudioRecords:   audio,
		CookingRecords: cooking,
		Ingredients:    ingredients,
		EatingRecords:  eating,
		Settings:       &settings,
		ExportDate:     s.now(),
		Version:        SettingsVersion,
	}, nil
}

// Import replaces each collection wholesale with the corresponding slice from
// the backup. Collections absent from the document (nil slices) are left
// untouched.
func (s *Store) Import(ctx context.Context, backup *Backup) error {
	if backup == nil {
		return nil
	}
	if backup.AudioRecords != nil {
		if err := saveCollection(ctx, s, keyAudioRecords, backup.AudioRecords); err != nil {
			return err
		}
	}
	if backup.CookingRecords != nil {
		if err := saveCollection(ctx, s, keyCookingRecords, backup.CookingRecords); err != nil {
			return err
		}
	}
	if backup.Ingredients != nil {
		if err := saveCollection(ctx, s, keyIngredients, backup.Ingredients); err != nil {
			return err
		}
	}
	if backup.EatingRecords != nil {
		if err := saveCollection(ctx, s, keyEatingRecords, backup.EatingRecords); err != nil {
			return err
		}
	}
	if backup.Settings != nil {
		if err := s.SetSettings(ctx, *backup.Settings); err != nil {
			return err
		}
	}
	return nil
}
