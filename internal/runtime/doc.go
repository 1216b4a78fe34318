// Package runtime выполняет жизненный цикл одной задачи.
//
// Runtime — единица конкурентности контроллера: одна горутина на задачу,
// исполняющая initialize → цикл → cleanup против пространства имён
// переменных задачи и её устройств.
//
// Ключевые свойства:
//   - сбои (ошибки и паники) поведения ловятся на границе рантайма,
//     пишутся в MESSAGE и переводят задачу в ERROR — соседние задачи
//     и оркестратор их не видят
//   - cleanup выполняется ровно один раз на любом пути выхода
//   - единственная точка ожидания между итерациями — тик инжектируемых
//     часов, что позволяет детерминированно тестировать цикл
//   - остановка кооперативная: флаг проверяется между итерациями
//
// Пользовательская логика поставляется через интерфейс Behavior и
// реестр поведений по имени module из дескриптора.
package runtime
