// Package bus — транспорт переменных поверх RabbitMQ.
//
// Это конкретная реализация интерфейса pv.Publisher: объявления и
// изменения переменных публикуются в exchange beamline.pv, внешние
// записи потребляются из очереди pv.writes и маршрутизируются во
// владеющую задачу через Orchestrator.ExternalWrite.
//
// Движок задач от пакета не зависит — bus подключается в бинаре.
// Контроллер без RabbitMQ работает автономно (nil-публикатор).
package bus
