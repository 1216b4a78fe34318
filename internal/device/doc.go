// Package device содержит абстракцию устройств beamline и их реестр.
//
// Устройство — это handle над компонентом установки (мотор, датчик,
// источник питания), полиморфный по набору способностей:
// Movable, Readable, Stoppable.
//
// Registry строится один раз из конфигурации через зарегистрированные
// конструкторы по паре (group, type) и после Build только читается.
// Отсутствие конструктора или сбой конструирования — предупреждение,
// а не ошибка: задачи обязаны переживать отсутствующие устройства.
package device
