// Package progression содержит доменную модель прогресса пользователя Memory Palace.
//
// Пакет превращает действия пользователя (создание комнаты, сохранение
// воспоминания, прогулка по комнате, поиск, выполнение задания пути)
// в начисление опыта, повышение уровня, обновление серии дней,
// разблокировку достижений, генерацию испытаний и продвижение по
// путям обучения. Пакет определяет:
//
//   - Сущности: UserProfile, AchievementRecord, ChallengeInstance
//   - Политики: LevelingPolicy, StreakTracker, AchievementEvaluator,
//     ChallengeGenerator, LearningPathTracker
//   - Определения каталога: AchievementDefinition, ChallengeTemplate,
//     LearningPathTemplate, Personality
//   - Интерфейсы: Catalog, ProfileStore, Rand, IDGenerator
//
// # Архитектурные принципы
//
//  1. Нулевые внешние зависимости - только стандартная библиотека Go
//  2. Dependency Inversion - хранилища и каталог реализуются в infrastructure
//  3. Политики не делают I/O и не сохраняют профиль; это делает движок
//     (application/engine) одним сохранением на действие
//
// # Порядок применения
//
// Движок вызывает политики в фиксированном порядке:
//
//	streak := tracker.UpdateStreak(profile, now)
//	leveling.AddXP(profile, streak.Bonus)
//	unlocked, _ := evaluator.Evaluate(profile, snapshot, now)
//	challenge, _ := generator.Generate(profile, snapshot, now)
//	stage, _ := paths.AdvanceTask(profile, pathID, label)
//
// Каждая политика мутирует переданную копию профиля; сохранение и
// блокировка по пользователю лежат на вызывающей стороне.
package progression
