package storage

import (
	"encoding/json"
	"errors"

	"gensuite/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Versioned returns the record header for the current schema and codec.
func Versioned() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeRun(r model.RunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeTimeline(points []model.TimelinePoint) ([]byte, error) {
	return json.Marshal(points)
}

func DecodeTimeline(data []byte) ([]model.TimelinePoint, error) {
	var points []model.TimelinePoint
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func EncodeTestSuite(tests []model.TestCaseRecord) ([]byte, error) {
	return json.Marshal(tests)
}

func DecodeTestSuite(data []byte) ([]model.TestCaseRecord, error) {
	var tests []model.TestCaseRecord
	if err := json.Unmarshal(data, &tests); err != nil {
		return nil, err
	}
	for _, test := range tests {
		if err := checkVersion(test.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return tests, nil
}

func EncodeGoals(goals []model.GoalRecord) ([]byte, error) {
	return json.Marshal(goals)
}

func DecodeGoals(data []byte) ([]model.GoalRecord, error) {
	var goals []model.GoalRecord
	if err := json.Unmarshal(data, &goals); err != nil {
		return nil, err
	}
	return goals, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
