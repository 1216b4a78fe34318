// Package tasks содержит поставляемые поведения задач.
//
// Поведение — это реализация runtime.Behavior, выбираемая по полю
// module дескриптора. Пакет регистрирует все поставляемые поведения
// в реестре через RegisterAll; конфигурация решает, какие из них
// станут задачами.
//
// Поставляемые поведения:
//   - motorwatch — отслеживание движения моторов с публикацией
//     позиции и флага движения;
//   - devscan — периодический опрос читаемых устройств.
package tasks
