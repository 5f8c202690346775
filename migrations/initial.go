package migrations

import (
	"github.com/apex/log"
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"

	"github.com/grtshw/lead-dispatch/utils"
)

func init() {
	m.Register(func(app core.App) error {
		// Dashboard users extend the default users auth collection
		return extendUsersCollection(app)
	}, nil)
}

func extendUsersCollection(app core.App) error {
	collection, err := app.FindCollectionByNameOrId(utils.CollectionUsers)
	if err != nil {
		// Users collection should exist by default
		return nil
	}

	if !fieldExists(collection, utils.FieldRole) {
		collection.Fields.Add(&core.SelectField{
			Id:        "users_role",
			Name:      utils.FieldRole,
			MaxSelect: 1,
			Values:    utils.UserRoles,
		})
	}

	// Team the rep dispatches leads for, shown on the leaderboard
	if !fieldExists(collection, utils.FieldTeam) {
		collection.Fields.Add(&core.TextField{
			Id:   "users_team",
			Name: utils.FieldTeam,
			Max:  100,
		})
	}

	return app.Save(collection)
}

func fieldExists(collection *core.Collection, fieldName string) bool {
	return collection.Fields.GetByName(fieldName) != nil
}

// logCollection describes a server-written log collection.
type logCollection struct {
	name     string
	fields   []core.Field
	indexes  []string
	readRule string
}

// create saves the collection unless it already exists.
func (c logCollection) create(app core.App) error {
	if existing, _ := app.FindCollectionByNameOrId(c.name); existing != nil {
		log.Infof("[Migration] %s collection already exists", c.name)
		return nil
	}

	collection := core.NewBaseCollection(c.name)
	collection.Fields.Add(c.fields...)
	collection.Fields.Add(&core.AutodateField{Id: c.name + "_created", Name: "created", OnCreate: true})
	collection.Indexes = c.indexes

	// Only the server writes, create/update/delete rules stay nil
	collection.ListRule = &c.readRule
	collection.ViewRule = &c.readRule

	if err := app.Save(collection); err != nil {
		return err
	}

	log.Infof("[Migration] Created %s collection", c.name)
	return nil
}

func (c logCollection) drop(app core.App) error {
	collection, err := app.FindCollectionByNameOrId(c.name)
	if err != nil {
		return nil
	}
	return app.Delete(collection)
}
