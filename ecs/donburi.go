package ecs

import (
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
	"github.com/yohamta/donburi/filter"

	"github.com/phanxgames/scenery"
)

// HookEvent is published for every hook marker reached while a frame is
// submitted to the device.
type HookEvent struct {
	Hook  scenery.Hook
	Frame int
}

// HookEventType is the Donburi event type for compositor hooks.
var HookEventType = events.NewEventType[HookEvent]()

var (
	// EntityComponent holds a scenery entity.
	EntityComponent = donburi.NewComponentType[scenery.Entity]()
	// Object and Character tag which list an entity is drawn from.
	Object    = donburi.NewTag()
	Character = donburi.NewTag()
)

var (
	objectQuery    = donburi.NewQuery(filter.Contains(EntityComponent, Object))
	characterQuery = donburi.NewQuery(filter.Contains(EntityComponent, Character))
)

// FrameCounter is implemented by *scenery.Compositor.
type FrameCounter interface {
	Stats() scenery.Stats
}

// NewHookPublisher returns an Options.OnHook callback that publishes each
// hook to world. Events are delivered by events.ProcessAllEvents. fc may be
// nil, in which case Frame is always zero.
func NewHookPublisher(world donburi.World, fc FrameCounter) func(scenery.Hook) {
	return func(h scenery.Hook) {
		ev := HookEvent{Hook: h}
		if fc != nil {
			ev.Frame = fc.Stats().Frame
		}
		HookEventType.Publish(world, ev)
	}
}

// NewObject adds an object entity to world.
func NewObject(world donburi.World, e scenery.Entity) donburi.Entity {
	id := world.Create(EntityComponent, Object)
	EntityComponent.SetValue(world.Entry(id), e)
	return id
}

// NewCharacter adds a character entity to world.
func NewCharacter(world donburi.World, e scenery.Entity) donburi.Entity {
	id := world.Create(EntityComponent, Character)
	EntityComponent.SetValue(world.Entry(id), e)
	return id
}

// Collect returns pointers to the objects and characters in world. The
// pointers alias component storage and stay valid until the world's
// archetypes change.
func Collect(world donburi.World) (objects, characters []*scenery.Entity) {
	objectQuery.Each(world, func(entry *donburi.Entry) {
		objects = append(objects, EntityComponent.Get(entry))
	})
	characterQuery.Each(world, func(entry *donburi.Entry) {
		characters = append(characters, EntityComponent.Get(entry))
	})
	return objects, characters
}

// Sync hands the world's entities to comp. Call it after creating or
// removing entities.
func Sync(world donburi.World, comp *scenery.Compositor) {
	objects, characters := Collect(world)
	comp.SetObjects(objects)
	comp.SetCharacters(characters)
}
