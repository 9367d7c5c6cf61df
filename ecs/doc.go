// Package ecs connects a scenery compositor to a [Donburi] world.
//
// Scenery entities can live in the world as [EntityComponent] values tagged
// [Object] or [Character]; [Sync] collects them for the compositor each
// frame. Frame hooks are published as [HookEventType] events:
//
//	world := donburi.NewWorld()
//	comp := scenery.NewCompositor(dev, scenery.Options{
//		OnHook: ecs.NewHookPublisher(world, nil),
//	})
//	ecs.Sync(world, comp)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
