// Package services implements the driving ports.
//
// IndexService owns the positional index: a dense slot map, the document
// store it joins to, and the similarity index, always loaded, mutated and
// saved together. Deletes rebuild the survivors from slot 0 because the
// similarity index has no delete primitive. Mutations on one path are
// serialised in process; readers only ever see committed states.
//
// IngestService, AnswerService and SettingsService sit on top of it.
package services
