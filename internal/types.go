package internal

import (
	"sjsage522/shopcollagebot/internal/catalog"
	"sjsage522/shopcollagebot/internal/collage"
	"sjsage522/shopcollagebot/internal/crawler"
	"sjsage522/shopcollagebot/services/lock"
	"sjsage522/shopcollagebot/services/publisher"
)

// Dependencies holds everything one dispatch pass works with
type Dependencies struct {
	Source       crawler.Source
	Builder      *collage.Builder
	Publisher    publisher.Publisher
	Catalog      *catalog.Catalog
	Announcement catalog.Announcement
	Locker       lock.Locker
}
