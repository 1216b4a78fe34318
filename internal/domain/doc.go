// Package domain содержит основные доменные модели контроллера.
//
// Здесь определены:
//   - TaskDescriptor — статическое описание задачи из конфигурации
//   - VariableSpec — описание одной process variable
//   - DeviceSpec — описание устройства из конфигурации beamline
//   - TaskState — конечный автомат жизненного цикла задачи
//   - Params — типизированный доступ к параметрам задачи
//
// Модели не зависят от инфраструктуры (БД, очереди, устройства) —
// это чистые данные плюс валидация.
package domain
