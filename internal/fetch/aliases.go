package fetch

import (
	"github.com/odysseus0/feedmd/internal/config"
	"github.com/odysseus0/feedmd/internal/model"
	"github.com/odysseus0/feedmd/internal/store"
)

type Config = config.Config
type Store = store.Store
type Feed = model.Feed
type FetchResult = model.FetchResult
type FetchReport = model.FetchReport
type RerenderReport = model.RerenderReport
type EntryListOptions = model.EntryListOptions
type UpsertEntryInput = model.UpsertEntryInput
