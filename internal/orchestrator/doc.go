// Package orchestrator управляет группой задач контроллера.
//
// Orchestrator отвечает за:
//   - Загрузку дескрипторов и создание экземпляров задач
//   - Привязку экземпляров к реестру устройств и публикатору переменных
//   - Запуск рантаймов как независимых горутин
//   - Маршрутизацию внешних записей переменных во владеющую задачу
//   - Групповую остановку с таймаутом и принудительной финализацией
//   - Агрегацию состояний задач
//
// Политика изоляции: сбой загрузки или старта одной задачи логируется
// и не мешает остальным; сбои внутри цикла задачи оркестратор видит
// только как переход её состояния в ERROR.
package orchestrator
