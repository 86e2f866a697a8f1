package store

import "github.com/odysseus0/feedmd/internal/model"

type Feed = model.Feed
type Entry = model.Entry
type Stats = model.Stats
type EntryListOptions = model.EntryListOptions
type SearchOptions = model.SearchOptions
type UpsertEntryInput = model.UpsertEntryInput
type EntryRender = model.EntryRender
